package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
)

func TestVoiceRegistry_Join(t *testing.T) {
	guildID := snowflake.ID(1)
	userID := snowflake.ID(2)
	userChannel := snowflake.ID(10)
	otherChannel := snowflake.ID(20)

	tests := []struct {
		name           string
		setup          func(*VoiceRegistry, *mockConnector, *mockVoiceStateProvider)
		wantErr        error
		wantAlready    bool
		wantMoved      bool
		wantConnects   int
		wantRegistered bool
	}{
		{
			name: "connects to the user's channel",
			setup: func(_ *VoiceRegistry, _ *mockConnector, vs *mockVoiceStateProvider) {
				vs.channels[userID] = userChannel
			},
			wantConnects:   1,
			wantRegistered: true,
		},
		{
			name:    "user not in voice",
			wantErr: ErrNotInVoiceChannel,
		},
		{
			name: "already in the same channel",
			setup: func(r *VoiceRegistry, _ *mockConnector, vs *mockVoiceStateProvider) {
				vs.channels[userID] = userChannel
				r.Set(guildID, newMockVoiceSession(guildID, userChannel))
			},
			wantAlready:    true,
			wantRegistered: true,
		},
		{
			name: "moves from another channel",
			setup: func(r *VoiceRegistry, _ *mockConnector, vs *mockVoiceStateProvider) {
				vs.channels[userID] = userChannel
				r.Set(guildID, newMockVoiceSession(guildID, otherChannel))
			},
			wantMoved:      true,
			wantRegistered: true,
		},
		{
			name: "stale session is replaced",
			setup: func(r *VoiceRegistry, _ *mockConnector, vs *mockVoiceStateProvider) {
				vs.channels[userID] = userChannel
				stale := newMockVoiceSession(guildID, userChannel)
				stale.connected = false
				r.Set(guildID, stale)
			},
			wantConnects:   1,
			wantRegistered: true,
		},
		{
			name: "connect failure registers nothing",
			setup: func(_ *VoiceRegistry, c *mockConnector, vs *mockVoiceStateProvider) {
				vs.channels[userID] = userChannel
				c.connectErr = errors.New("timeout")
			},
			wantErr:      errors.New("timeout"),
			wantConnects: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connector := &mockConnector{}
			voiceState := newMockVoiceStateProvider()
			registry := NewVoiceRegistry(connector, voiceState)
			if tt.setup != nil {
				tt.setup(registry, connector, voiceState)
			}

			output, err := registry.Join(context.Background(), JoinInput{
				GuildID: guildID,
				UserID:  userID,
			})

			if connector.calls != tt.wantConnects {
				t.Errorf("expected %d connect calls, got %d", tt.wantConnects, connector.calls)
			}
			if got := registry.Get(guildID) != nil; got != tt.wantRegistered {
				t.Errorf("expected registered=%v, got %v", tt.wantRegistered, got)
			}

			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.wantErr)
				}
				if errors.Is(tt.wantErr, ErrNotInVoiceChannel) && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if output.ChannelID != userChannel {
				t.Errorf("expected channel %v, got %v", userChannel, output.ChannelID)
			}
			if output.AlreadyConnected != tt.wantAlready {
				t.Errorf("expected AlreadyConnected=%v, got %v", tt.wantAlready, output.AlreadyConnected)
			}
			if output.Moved != tt.wantMoved {
				t.Errorf("expected Moved=%v, got %v", tt.wantMoved, output.Moved)
			}
			if registry.Get(guildID).ChannelID() != userChannel {
				t.Errorf("expected session in %v, got %v", userChannel, registry.Get(guildID).ChannelID())
			}
		})
	}
}

func TestVoiceRegistry_Leave(t *testing.T) {
	guildID := snowflake.ID(1)

	t.Run("disconnects and clears", func(t *testing.T) {
		registry := NewVoiceRegistry(&mockConnector{}, newMockVoiceStateProvider())
		session := newMockVoiceSession(guildID, snowflake.ID(10))
		registry.Set(guildID, session)

		if err := registry.Leave(context.Background(), guildID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !session.disconnected {
			t.Error("expected session to be disconnected")
		}
		if registry.Get(guildID) != nil {
			t.Error("expected session to be cleared")
		}
	})

	t.Run("clears even when disconnect fails", func(t *testing.T) {
		registry := NewVoiceRegistry(&mockConnector{}, newMockVoiceStateProvider())
		session := newMockVoiceSession(guildID, snowflake.ID(10))
		session.disconnectErr = errors.New("gateway closed")
		registry.Set(guildID, session)

		if err := registry.Leave(context.Background(), guildID); err == nil {
			t.Error("expected error")
		}
		if registry.Get(guildID) != nil {
			t.Error("expected session to be cleared")
		}
	})

	t.Run("not connected", func(t *testing.T) {
		registry := NewVoiceRegistry(&mockConnector{}, newMockVoiceStateProvider())

		if err := registry.Leave(context.Background(), guildID); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}
