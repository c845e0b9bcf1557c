package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
)

// VoiceRegistry tracks the live voice session of each guild.
// A guild has at most one session.
type VoiceRegistry struct {
	connector  ports.VoiceConnector
	voiceState ports.VoiceStateProvider

	joins guildLocks

	mu       sync.RWMutex
	sessions map[snowflake.ID]ports.VoiceSession
}

// NewVoiceRegistry creates a new VoiceRegistry.
func NewVoiceRegistry(
	connector ports.VoiceConnector,
	voiceState ports.VoiceStateProvider,
) *VoiceRegistry {
	return &VoiceRegistry{
		connector:  connector,
		voiceState: voiceState,
		sessions:   make(map[snowflake.ID]ports.VoiceSession),
	}
}

// Get returns the guild's session, or nil when there is none.
func (r *VoiceRegistry) Get(guildID snowflake.ID) ports.VoiceSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[guildID]
}

// Set registers a session for the guild, replacing any previous one.
func (r *VoiceRegistry) Set(guildID snowflake.ID, session ports.VoiceSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[guildID] = session
}

// Clear forgets the guild's session without disconnecting it.
func (r *VoiceRegistry) Clear(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, guildID)
}

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	ChannelID        snowflake.ID
	AlreadyConnected bool
	Moved            bool
}

// Join connects the bot to the user's voice channel, moving an existing
// session when it lives in another channel. On failure no session is
// registered.
func (r *VoiceRegistry) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	channelID, ok := r.voiceState.UserVoiceChannel(input.GuildID, input.UserID)
	if !ok {
		return nil, ErrNotInVoiceChannel
	}

	unlock := r.joins.lock(input.GuildID)
	defer unlock()

	if existing := r.Get(input.GuildID); existing != nil {
		if existing.IsConnected() {
			if existing.ChannelID() == channelID {
				return &JoinOutput{ChannelID: channelID, AlreadyConnected: true}, nil
			}
			if err := existing.MoveTo(ctx, channelID); err != nil {
				return nil, fmt.Errorf("failed to move to voice channel: %w", err)
			}
			return &JoinOutput{ChannelID: channelID, Moved: true}, nil
		}
		r.Clear(input.GuildID)
	}

	session, err := r.connector.Connect(ctx, input.GuildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to voice channel: %w", err)
	}
	r.Set(input.GuildID, session)

	slog.Info("joined voice channel",
		"guild", input.GuildID,
		"channel", channelID,
	)

	return &JoinOutput{ChannelID: channelID}, nil
}

// Leave disconnects the guild's session and forgets it.
// The session is cleared even when disconnecting fails.
func (r *VoiceRegistry) Leave(ctx context.Context, guildID snowflake.ID) error {
	unlock := r.joins.lock(guildID)
	defer unlock()

	session := r.Get(guildID)
	if session == nil {
		return ErrNotConnected
	}
	r.Clear(guildID)

	if err := session.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

// IsConnected reports whether the guild has a connected session.
func (r *VoiceRegistry) IsConnected(guildID snowflake.ID) bool {
	session := r.Get(guildID)
	return session != nil && session.IsConnected()
}

// IsAlone reports whether the guild is connected to a channel without humans.
func (r *VoiceRegistry) IsAlone(guildID snowflake.ID) bool {
	session := r.Get(guildID)
	if session == nil || !session.IsConnected() {
		return false
	}
	return r.voiceState.HumanCount(guildID, session.ChannelID()) == 0
}
