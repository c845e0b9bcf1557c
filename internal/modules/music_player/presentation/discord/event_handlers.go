package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
)

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	voiceEvents *usecases.VoiceEventService
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(voiceEvents *usecases.VoiceEventService) *EventHandlers {
	return &EventHandlers{voiceEvents: voiceEvents}
}

// HandleVoiceStateUpdate forwards a member's voice channel change.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	change, err := voiceStateChange(event)
	if err != nil {
		slog.Error("failed to parse voice state update", "error", err)
		return
	}

	h.voiceEvents.HandleVoiceStateChange(context.Background(), change)
}

// voiceStateChange converts a gateway update. An empty channel ID means the
// member is not in voice.
func voiceStateChange(event *discordgo.VoiceStateUpdate) (usecases.VoiceStateChange, error) {
	var change usecases.VoiceStateChange

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return change, err
	}
	userID, err := snowflake.Parse(event.UserID)
	if err != nil {
		return change, err
	}
	change.GuildID = guildID
	change.UserID = userID

	if event.ChannelID != "" {
		if change.AfterChannelID, err = snowflake.Parse(event.ChannelID); err != nil {
			return change, err
		}
	}
	if event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != "" {
		if change.BeforeChannelID, err = snowflake.Parse(event.BeforeUpdate.ChannelID); err != nil {
			return change, err
		}
	}
	if event.Member != nil && event.Member.User != nil {
		change.IsBot = event.Member.User.Bot
	}
	return change, nil
}
