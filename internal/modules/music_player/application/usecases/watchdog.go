package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
)

const idleDisconnectTimeout = 30 * time.Second

// stopper is the part of *time.Timer the watchdog needs.
type stopper interface {
	Stop() bool
}

type idleTimer struct {
	stop stopper
}

// Watchdog disconnects guilds whose voice channel stayed free of humans and
// silent for the idle timeout.
type Watchdog struct {
	timeout    time.Duration
	voices     *VoiceRegistry
	voiceState ports.VoiceStateProvider
	notifier   IdleNotifier

	afterFunc func(time.Duration, func()) stopper

	mu           sync.Mutex
	timers       map[snowflake.ID]*idleTimer
	disconnector Disconnector
}

// NewWatchdog creates a new Watchdog.
func NewWatchdog(
	timeout time.Duration,
	voices *VoiceRegistry,
	voiceState ports.VoiceStateProvider,
	notifier IdleNotifier,
) *Watchdog {
	return &Watchdog{
		timeout:    timeout,
		voices:     voices,
		voiceState: voiceState,
		notifier:   notifier,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		timers: make(map[snowflake.ID]*idleTimer),
	}
}

// SetDisconnector sets who tears the guild down when the timer fires.
func (w *Watchdog) SetDisconnector(d Disconnector) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disconnector = d
}

// StartTimer (re)starts the guild's idle countdown.
func (w *Watchdog) StartTimer(guildID snowflake.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.timers[guildID]; ok {
		existing.stop.Stop()
	}

	t := &idleTimer{}
	w.timers[guildID] = t
	t.stop = w.afterFunc(w.timeout, func() {
		w.fire(guildID, t)
	})

	slog.Debug("idle timer started", "guild", guildID, "timeout", w.timeout)
}

// ClearTimer cancels the guild's idle countdown. It is a no-op when none is
// pending.
func (w *Watchdog) ClearTimer(guildID snowflake.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.timers[guildID]
	if !ok {
		return
	}
	t.stop.Stop()
	delete(w.timers, guildID)

	slog.Debug("idle timer cleared", "guild", guildID)
}

// HasTimer reports whether a countdown is pending for the guild.
func (w *Watchdog) HasTimer(guildID snowflake.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.timers[guildID]
	return ok
}

// fire re-checks the guild when its countdown expires.
func (w *Watchdog) fire(guildID snowflake.ID, t *idleTimer) {
	w.mu.Lock()
	if w.timers[guildID] != t {
		// Cleared or replaced after the timer already fired.
		w.mu.Unlock()
		return
	}
	delete(w.timers, guildID)
	disconnector := w.disconnector
	w.mu.Unlock()

	session := w.voices.Get(guildID)
	if session == nil || !session.IsConnected() {
		return
	}
	if session.IsPlaying() {
		return
	}
	if w.voiceState.HumanCount(guildID, session.ChannelID()) > 0 {
		return
	}

	slog.Info("disconnecting idle voice session",
		"guild", guildID,
		"channel", session.ChannelID(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), idleDisconnectTimeout)
	defer cancel()

	if w.notifier != nil {
		w.notifier.NotifyIdleDisconnect(ctx, guildID)
	}
	if disconnector == nil {
		return
	}
	if err := disconnector.Leave(ctx, guildID); err != nil {
		slog.Error("failed to disconnect idle session",
			"guild", guildID,
			"error", err,
		)
	}
}
