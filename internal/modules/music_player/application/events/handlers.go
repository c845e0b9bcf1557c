package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// FinishedFunc is the function signature for reacting to a finished stream.
type FinishedFunc func(ctx context.Context, event domain.PlaybackFinishedEvent)

// PlaybackEventHandler feeds finished streams back into the play-next loop.
// Each event is handled on its own goroutine so a slow stream refresh in one
// guild never delays another; ordering within a guild is enforced by the
// receiver.
type PlaybackEventHandler struct {
	onFinished FinishedFunc
	bus        *Bus

	wg   sync.WaitGroup
	done chan struct{}
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(onFinished FinishedFunc, bus *Bus) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		onFinished: onFinished,
		bus:        bus,
		done:       make(chan struct{}),
	}
}

// Start begins listening for events in a background goroutine.
func (h *PlaybackEventHandler) Start(ctx context.Context) {
	h.wg.Add(1)

	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case event, ok := <-h.bus.PlaybackFinished():
				if !ok {
					return
				}
				h.dispatch(ctx, event)
			}
		}
	}()

	slog.Debug("playback event handler started")
}

// Stop stops the event handler and waits for in-flight events to finish.
func (h *PlaybackEventHandler) Stop() {
	close(h.done)
	h.wg.Wait()
	slog.Debug("playback event handler stopped")
}

func (h *PlaybackEventHandler) dispatch(ctx context.Context, event domain.PlaybackFinishedEvent) {
	if !event.Reason.ShouldAdvanceQueue() {
		slog.Debug("stream ended but should not advance queue",
			"guild", event.GuildID,
			"reason", event.Reason,
		)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.onFinished(ctx, event)
	}()
}
