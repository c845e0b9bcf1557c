package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// Custom IDs of the controller's buttons and the add-song modal.
const (
	CustomIDPlayPause     = "music_play_pause"
	CustomIDAddSong       = "music_add_song"
	CustomIDSkip          = "music_skip"
	CustomIDQueue         = "music_queue"
	CustomIDClearQueue    = "music_clear_queue"
	CustomIDVolumeDown    = "music_volume_down"
	CustomIDVolumeDisplay = "music_volume_display"
	CustomIDVolumeUp      = "music_volume_up"
	CustomIDJoinVoice     = "music_join_vc"
	CustomIDLeaveVoice    = "music_leave_vc"
	CustomIDRepeat        = "music_repeat"
	CustomIDRefresh       = "music_refresh"

	CustomIDAddSongModal = "music_add_song_modal"
	CustomIDSongInput    = "music_song_input"
)

var repeatEmojis = map[domain.RepeatMode]string{
	domain.RepeatOff: "⏹️",
	domain.RepeatOne: "🔂",
	domain.RepeatAll: "🔁",
}

// RenderController builds the controller message for state.
func RenderController(state domain.RenderedState) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	return controllerEmbed(state), controllerComponents(state)
}

func controllerEmbed(state domain.RenderedState) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Music Controller",
		Description: "Control the music playback using the buttons below.",
		Color:       colorInfo,
	}

	if !state.HasSong() {
		embed.Fields = []*discordgo.MessageEmbedField{
			{
				Name: "Status",
				Value: fmt.Sprintf(
					"%s\nNothing is currently playing. Use `/play <song name or URL>` to add songs to the queue.",
					state.Status,
				),
			},
		}
		return embed
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name:  "Now Playing",
			Value: songLink(state.Title, state.WebpageRef, state.DurationLabel),
		},
		{
			Name:   "Status",
			Value:  state.Status.String(),
			Inline: true,
		},
	}
	if state.QueueLength > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Up Next",
			Value:  fmt.Sprintf("%d song(s)", state.QueueLength),
			Inline: true,
		})
	}
	return embed
}

func controllerComponents(state domain.RenderedState) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "⏯️ Play/Pause", Style: discordgo.PrimaryButton, CustomID: CustomIDPlayPause},
				discordgo.Button{Label: "🎵 Add Song", Style: discordgo.PrimaryButton, CustomID: CustomIDAddSong},
				discordgo.Button{Label: "⏭️ Skip", Style: discordgo.PrimaryButton, CustomID: CustomIDSkip},
				discordgo.Button{Label: "📋 Queue", Style: discordgo.SecondaryButton, CustomID: CustomIDQueue},
				discordgo.Button{Label: "🗑️ Clear Queue", Style: discordgo.DangerButton, CustomID: CustomIDClearQueue},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🔉 -10%", Style: discordgo.SecondaryButton, CustomID: CustomIDVolumeDown},
				discordgo.Button{
					Label:    fmt.Sprintf("🔊 %d%%", state.Volume),
					Style:    discordgo.SecondaryButton,
					CustomID: CustomIDVolumeDisplay,
					Disabled: true,
				},
				discordgo.Button{Label: "🔊 +10%", Style: discordgo.SecondaryButton, CustomID: CustomIDVolumeUp},
				discordgo.Button{Label: "🎤 Join VC", Style: discordgo.SuccessButton, CustomID: CustomIDJoinVoice},
				discordgo.Button{Label: "👋 Leave VC", Style: discordgo.DangerButton, CustomID: CustomIDLeaveVoice},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    repeatEmojis[state.Repeat] + " Repeat",
					Style:    discordgo.SecondaryButton,
					CustomID: CustomIDRepeat,
				},
				discordgo.Button{Label: "🔄 Refresh", Style: discordgo.SecondaryButton, CustomID: CustomIDRefresh},
			},
		},
	}
}

// addSongModal asks for a URL or search term.
func addSongModal() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: CustomIDAddSongModal,
			Title:    "Add Song",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    CustomIDSongInput,
							Label:       "Song name or URL",
							Style:       discordgo.TextInputShort,
							Placeholder: "Enter a song name or YouTube URL",
							Required:    true,
							MaxLength:   200,
						},
					},
				},
			},
		},
	}
}

// songLink formats a song as a markdown link with its duration.
func songLink(title, webpageRef, durationLabel string) string {
	if webpageRef == "" {
		return fmt.Sprintf("**%s** (%s)", title, durationLabel)
	}
	return fmt.Sprintf("[%s](%s) (%s)", title, webpageRef, durationLabel)
}
