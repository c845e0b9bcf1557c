package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
)

const volumeStep = 10

// ComponentHandlers handles presses on the controller's buttons and the
// add-song modal.
type ComponentHandlers struct {
	svc Services
}

// NewComponentHandlers creates new ComponentHandlers.
func NewComponentHandlers(svc Services) *ComponentHandlers {
	return &ComponentHandlers{svc: svc}
}

// Handlers returns the handlers keyed by custom ID.
func (h *ComponentHandlers) Handlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		CustomIDPlayPause:    h.HandlePlayPause,
		CustomIDAddSong:      h.HandleAddSong,
		CustomIDSkip:         h.HandleSkip,
		CustomIDQueue:        h.HandleQueue,
		CustomIDClearQueue:   h.HandleClearQueue,
		CustomIDVolumeDown:   h.HandleVolumeDown,
		CustomIDVolumeUp:     h.HandleVolumeUp,
		CustomIDJoinVoice:    h.HandleJoinVoice,
		CustomIDLeaveVoice:   h.HandleLeaveVoice,
		CustomIDRepeat:       h.HandleRepeat,
		CustomIDRefresh:      h.HandleRefresh,
		CustomIDAddSongModal: h.HandleAddSongSubmit,
	}
}

// HandlePlayPause pauses, resumes, or starts the queue.
func (h *ComponentHandlers) HandlePlayPause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	action, err := h.svc.Playback.TogglePause(ctx, guildID)
	if err != nil {
		return handleError(r, err)
	}

	switch action {
	case usecases.TogglePaused:
		return respondEphemeral(r, "⏸️ Paused playback.")
	case usecases.ToggleResumed:
		return respondEphemeral(r, "▶️ Resumed playback.")
	default:
		return respondEphemeral(r, "▶️ Started playback.")
	}
}

// HandleAddSong opens the add-song modal.
func (h *ComponentHandlers) HandleAddSong(
	_ *discordgo.Session,
	_ *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return r.Respond(addSongModal())
}

// HandleAddSongSubmit plays the song entered in the add-song modal.
func (h *ComponentHandlers) HandleAddSongSubmit(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, err := parseCaller(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	query := strings.TrimSpace(modalValue(i.ModalSubmitData(), CustomIDSongInput))
	if query == "" {
		return handleError(r, usecases.ErrInvalidReference)
	}

	if err := deferReply(r, true); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	output, err := h.svc.play(ctx, guildID, userID, query)
	if err != nil {
		return editError(r, i.GuildID, err)
	}
	return editEmbed(r, playedEmbed(output))
}

// HandleSkip skips the current song.
func (h *ComponentHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	output, err := h.svc.Playback.Skip(ctx, guildID)
	if err != nil {
		return handleError(r, err)
	}

	return respondEphemeral(r, "⏭️ "+skipDescription(output))
}

// HandleQueue shows the queue to the presser only.
func (h *ComponentHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	snapshot, err := h.svc.Queue.List(guildID)
	if err != nil {
		return handleError(r, err)
	}

	return respondEmbed(r, queueEmbed(snapshot), true)
}

// HandleClearQueue stops playback and empties the queue.
func (h *ComponentHandlers) HandleClearQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.svc.Playback.Stop(ctx, guildID); err != nil {
		return handleError(r, err)
	}

	return respondEphemeral(r, "🗑️ Cleared the queue.")
}

// HandleVolumeDown lowers the volume by one step.
func (h *ComponentHandlers) HandleVolumeDown(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.adjustVolume(i, r, -volumeStep)
}

// HandleVolumeUp raises the volume by one step.
func (h *ComponentHandlers) HandleVolumeUp(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.adjustVolume(i, r, volumeStep)
}

func (h *ComponentHandlers) adjustVolume(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	delta int,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if _, err := h.svc.Playback.AdjustVolume(ctx, guildID, delta); err != nil {
		return handleError(r, err)
	}

	// The controller shows the new volume.
	return acknowledge(r)
}

// HandleJoinVoice joins the presser's voice channel.
func (h *ComponentHandlers) HandleJoinVoice(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, userID, err := parseCaller(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	output, err := h.svc.join(ctx, guildID, userID)
	if err != nil {
		return handleError(r, err)
	}

	if output.AlreadyConnected {
		return respondEphemeral(r, "Already connected to your voice channel.")
	}
	return respondEphemeral(r, fmt.Sprintf("🎤 Joined <#%d>.", output.ChannelID))
}

// HandleLeaveVoice disconnects and clears the guild's state.
func (h *ComponentHandlers) HandleLeaveVoice(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.svc.Playback.Leave(ctx, guildID); err != nil {
		return handleError(r, err)
	}

	return respondEphemeral(r, "👋 Left the voice channel.")
}

// HandleRepeat cycles the repeat mode.
func (h *ComponentHandlers) HandleRepeat(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	h.svc.Queue.ToggleRepeat(context.Background(), guildID)

	return acknowledge(r)
}

// HandleRefresh re-renders the controller.
func (h *ComponentHandlers) HandleRefresh(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := acknowledge(r); err != nil {
		return err
	}
	h.svc.Controller.Update(context.Background(), guildID)
	return nil
}

// modalValue returns the value of the text input customID in a modal
// submission.
func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, component := range data.Components {
		var row []discordgo.MessageComponent
		switch c := component.(type) {
		case *discordgo.ActionsRow:
			row = c.Components
		case discordgo.ActionsRow:
			row = c.Components
		default:
			continue
		}
		for _, inner := range row {
			switch input := inner.(type) {
			case *discordgo.TextInput:
				if input.CustomID == customID {
					return input.Value
				}
			case discordgo.TextInput:
				if input.CustomID == customID {
					return input.Value
				}
			}
		}
	}
	return ""
}
