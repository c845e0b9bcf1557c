package infrastructure

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
)

// VoiceStateProvider provides Discord voice state information from the
// gateway state cache.
type VoiceStateProvider struct {
	session *discordgo.Session
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{
		session: session,
	}
}

// UserVoiceChannel returns the voice channel the user is currently in.
func (v *VoiceStateProvider) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return 0, false
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			channelID, err := snowflake.Parse(vs.ChannelID)
			if err != nil {
				return 0, false
			}
			return channelID, true
		}
	}

	return 0, false
}

// HumanCount returns how many non-bot members are in the channel.
func (v *VoiceStateProvider) HumanCount(guildID, channelID snowflake.ID) int {
	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return 0
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID.String() {
			continue
		}
		if v.isBot(guild.ID, vs) {
			continue
		}
		count++
	}
	return count
}

func (v *VoiceStateProvider) isBot(guildID string, vs *discordgo.VoiceState) bool {
	if v.session.State.User != nil && vs.UserID == v.session.State.User.ID {
		return true
	}
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	member, err := v.session.State.Member(guildID, vs.UserID)
	if err != nil || member.User == nil {
		return false
	}
	return member.User.Bot
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
