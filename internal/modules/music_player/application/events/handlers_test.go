package events

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

func TestPlaybackEventHandler_Finished_CallsHandler(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	calls := make(chan domain.PlaybackFinishedEvent, 1)
	handler := NewPlaybackEventHandler(
		func(_ context.Context, event domain.PlaybackFinishedEvent) {
			calls <- event
		},
		bus,
	)

	handler.Start(t.Context())
	defer handler.Stop()

	bus.PublishPlaybackFinished(domain.PlaybackFinishedEvent{
		GuildID:   snowflake.ID(1),
		StreamRef: "stream-a",
		Reason:    domain.TrackEndFinished,
	})

	select {
	case event := <-calls:
		if event.GuildID != snowflake.ID(1) || event.StreamRef != "stream-a" {
			t.Errorf("unexpected event %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected handler to be called for a finished stream")
	}
}

func TestPlaybackEventHandler_Stopped_DoesNotCallHandler(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	calls := make(chan struct{}, 1)
	handler := NewPlaybackEventHandler(
		func(context.Context, domain.PlaybackFinishedEvent) {
			calls <- struct{}{}
		},
		bus,
	)

	handler.Start(t.Context())
	defer handler.Stop()

	for _, reason := range []domain.TrackEndReason{
		domain.TrackEndStopped,
		domain.TrackEndReplaced,
		domain.TrackEndCleanup,
	} {
		bus.PublishPlaybackFinished(domain.PlaybackFinishedEvent{
			GuildID: snowflake.ID(1),
			Reason:  reason,
		})
	}

	select {
	case <-calls:
		t.Error("expected handler not to be called")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPlaybackEventHandler_SlowGuildDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	release := make(chan struct{})
	handled := make(chan snowflake.ID, 2)
	handler := NewPlaybackEventHandler(
		func(_ context.Context, event domain.PlaybackFinishedEvent) {
			if event.GuildID == snowflake.ID(1) {
				<-release
			}
			handled <- event.GuildID
		},
		bus,
	)

	handler.Start(t.Context())
	defer handler.Stop()
	defer close(release)

	bus.PublishPlaybackFinished(domain.PlaybackFinishedEvent{GuildID: 1, Reason: domain.TrackEndFinished})
	bus.PublishPlaybackFinished(domain.PlaybackFinishedEvent{GuildID: 2, Reason: domain.TrackEndLoadFailed})

	select {
	case guildID := <-handled:
		if guildID != snowflake.ID(2) {
			t.Errorf("expected guild 2 first, got %v", guildID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected guild 2 to be handled while guild 1 is blocked")
	}
}

func TestPlaybackEventHandler_StopsOnContextCancellation(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	handler := NewPlaybackEventHandler(
		func(context.Context, domain.PlaybackFinishedEvent) {},
		bus,
	)

	ctx, cancel := context.WithCancel(context.Background())
	handler.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		handler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Error("handler did not stop after context cancellation")
	}
}
