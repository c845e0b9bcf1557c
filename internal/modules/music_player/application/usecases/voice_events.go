package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
)

// VoiceStateChange describes one member moving between voice channels.
// A zero channel ID means "not in voice".
type VoiceStateChange struct {
	GuildID         snowflake.ID
	UserID          snowflake.ID
	IsBot           bool
	BeforeChannelID snowflake.ID
	AfterChannelID  snowflake.ID
}

// VoiceEventService feeds voice occupancy changes into the watchdog and
// cleans up after external disconnects.
type VoiceEventService struct {
	botUserID  snowflake.ID
	voices     *VoiceRegistry
	voiceState ports.VoiceStateProvider
	timer      IdleTimer
	playback   *PlaybackService
}

// NewVoiceEventService creates a new VoiceEventService.
func NewVoiceEventService(
	botUserID snowflake.ID,
	voices *VoiceRegistry,
	voiceState ports.VoiceStateProvider,
	timer IdleTimer,
	playback *PlaybackService,
) *VoiceEventService {
	return &VoiceEventService{
		botUserID:  botUserID,
		voices:     voices,
		voiceState: voiceState,
		timer:      timer,
		playback:   playback,
	}
}

// HandleVoiceStateChange reacts to a voice state update.
func (s *VoiceEventService) HandleVoiceStateChange(ctx context.Context, change VoiceStateChange) {
	if change.UserID == s.botUserID {
		s.handleBotChange(ctx, change)
		return
	}
	if change.IsBot {
		return
	}

	session := s.voices.Get(change.GuildID)
	if session == nil || !session.IsConnected() {
		return
	}
	botChannel := session.ChannelID()

	switch {
	case change.AfterChannelID == botChannel && change.BeforeChannelID != botChannel:
		s.timer.ClearTimer(change.GuildID)
	case change.BeforeChannelID == botChannel && change.AfterChannelID != botChannel:
		if s.voiceState.HumanCount(change.GuildID, botChannel) == 0 {
			s.timer.StartTimer(change.GuildID)
		}
	}
}

func (s *VoiceEventService) handleBotChange(ctx context.Context, change VoiceStateChange) {
	if change.AfterChannelID == 0 {
		if s.voices.Get(change.GuildID) != nil {
			s.playback.HandleDisconnected(ctx, change.GuildID)
		}
		return
	}
	if change.BeforeChannelID == change.AfterChannelID {
		return
	}

	if s.voiceState.HumanCount(change.GuildID, change.AfterChannelID) == 0 {
		s.timer.StartTimer(change.GuildID)
	} else {
		s.timer.ClearTimer(change.GuildID)
	}
}
