package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

const (
	minVolume  = 0
	maxVolume  = 200
	volumeStep = 10
)

// PlaybackService drives the play-next loop of every guild.
//
// All queue transitions of a guild happen under that guild's lock. Every
// successful start gets a fresh play ID, and an advance only proceeds while
// the ID it was triggered for is still the active one. Stream refs repeat
// when the same song plays twice, so they cannot serve as that token.
type PlaybackService struct {
	queues     domain.QueueStore
	voices     *VoiceRegistry
	resolver   *StreamResolver
	controller ControllerUpdater
	timer      IdleTimer

	locks guildLocks

	mu         sync.Mutex
	playing    map[snowflake.ID]uint64 // play ID of the active start per guild
	lastPlayID uint64
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	queues domain.QueueStore,
	voices *VoiceRegistry,
	resolver *StreamResolver,
	controller ControllerUpdater,
	timer IdleTimer,
) *PlaybackService {
	return &PlaybackService{
		queues:     queues,
		voices:     voices,
		resolver:   resolver,
		controller: controller,
		timer:      timer,
		playing:    make(map[snowflake.ID]uint64),
	}
}

// PlaySongInput contains the input for the PlaySong use case.
type PlaySongInput struct {
	GuildID     snowflake.ID
	RequestedBy snowflake.ID
	Reference   string
}

// PlaySongOutput contains the result of the PlaySong use case.
type PlaySongOutput struct {
	Song    domain.Song
	Started bool // true if playback began with this request
	Queued  int  // pending songs after the request
}

// PlaySong resolves a reference, appends it to the queue and starts playback
// if the guild is idle.
func (p *PlaybackService) PlaySong(ctx context.Context, input PlaySongInput) (*PlaySongOutput, error) {
	if !p.voices.IsConnected(input.GuildID) {
		return nil, ErrNotConnected
	}

	song, err := p.resolver.ResolveNew(ctx, input.Reference)
	if err != nil {
		slog.Warn("failed to resolve song",
			"guild", input.GuildID,
			"user", input.RequestedBy,
			"reference", input.Reference,
			"error", err,
		)
		return nil, err
	}

	unlock := p.locks.lock(input.GuildID)
	p.queues.Enqueue(input.GuildID, song)

	started := false
	if !p.isActive(input.GuildID) {
		_, started = p.advanceLocked(ctx, input.GuildID)
	}
	queued := len(p.queues.Snapshot(input.GuildID).Pending)
	unlock()

	p.controller.Update(ctx, input.GuildID)

	slog.Info("song requested",
		"guild", input.GuildID,
		"user", input.RequestedBy,
		"title", song.Title,
		"started", started,
	)

	return &PlaySongOutput{Song: song, Started: started, Queued: queued}, nil
}

// Advance selects and starts the next playable song of the guild.
// It returns false when the queue is exhausted.
func (p *PlaybackService) Advance(ctx context.Context, guildID snowflake.ID) (domain.Song, bool) {
	unlock := p.locks.lock(guildID)
	song, ok := p.advanceLocked(ctx, guildID)
	unlock()

	p.controller.Update(ctx, guildID)
	return song, ok
}

// OnPlaybackFinished advances the queue after a stream ended on its own.
// Events for a stream that is no longer the active one are ignored.
func (p *PlaybackService) OnPlaybackFinished(ctx context.Context, event domain.PlaybackFinishedEvent) {
	if !event.Reason.ShouldAdvanceQueue() {
		return
	}
	if event.Err != nil {
		slog.Error("stream ended with error",
			"guild", event.GuildID,
			"reason", event.Reason,
			"error", event.Err,
		)
	}

	if p.advanceFrom(ctx, event.GuildID, event.PlayID) {
		p.controller.Update(ctx, event.GuildID)
	}
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped domain.Song
	Next    *domain.Song
}

// Skip abandons the current song and advances the queue.
func (p *PlaybackService) Skip(ctx context.Context, guildID snowflake.ID) (*SkipOutput, error) {
	if !p.voices.IsConnected(guildID) {
		return nil, ErrNotConnected
	}

	// The play ID is captured before taking the lock so that a natural
	// finish winning the race turns this skip into a no-op.
	expected := p.playingID(guildID)
	if expected == 0 {
		return nil, ErrNotPlaying
	}
	skipped, ok := p.queues.PeekCurrent(guildID)
	if !ok {
		return nil, ErrNotPlaying
	}

	p.advanceFrom(ctx, guildID, expected)

	output := &SkipOutput{Skipped: skipped}
	if next, ok := p.queues.PeekCurrent(guildID); ok {
		output.Next = &next
	}
	p.controller.Update(ctx, guildID)

	slog.Info("song skipped",
		"guild", guildID,
		"title", skipped.Title,
	)

	return output, nil
}

// Stop halts playback and empties both the pending list and the current slot.
// The repeat mode is kept.
func (p *PlaybackService) Stop(ctx context.Context, guildID snowflake.ID) error {
	session := p.voices.Get(guildID)
	if session == nil || !session.IsConnected() {
		return ErrNotConnected
	}

	unlock := p.locks.lock(guildID)
	if session.IsPlaying() || session.IsPaused() {
		if err := session.Stop(ctx); err != nil {
			slog.Warn("failed to stop session", "guild", guildID, "error", err)
		}
	}
	p.queues.ClearQueue(guildID)
	p.queues.SetCurrent(guildID, nil)
	p.setPlaying(guildID, 0)
	p.armIdleTimer(guildID)
	unlock()

	p.controller.Update(ctx, guildID)

	slog.Info("playback stopped", "guild", guildID)
	return nil
}

// Pause pauses the current song.
func (p *PlaybackService) Pause(ctx context.Context, guildID snowflake.ID) error {
	session, err := p.activeSession(guildID)
	if err != nil {
		return err
	}
	if session.IsPaused() {
		return ErrAlreadyPaused
	}

	if err := session.Pause(ctx); err != nil {
		return err
	}
	p.controller.Update(ctx, guildID)
	return nil
}

// Resume resumes a paused song.
func (p *PlaybackService) Resume(ctx context.Context, guildID snowflake.ID) error {
	session, err := p.activeSession(guildID)
	if err != nil {
		return err
	}
	if !session.IsPaused() {
		return ErrNotPaused
	}

	if err := session.Resume(ctx); err != nil {
		return err
	}
	p.controller.Update(ctx, guildID)
	return nil
}

// TogglePauseAction describes what TogglePause did.
type TogglePauseAction int

const (
	TogglePaused TogglePauseAction = iota
	ToggleResumed
	ToggleStarted
)

// TogglePause pauses, resumes, or starts the next song depending on state.
func (p *PlaybackService) TogglePause(ctx context.Context, guildID snowflake.ID) (TogglePauseAction, error) {
	session := p.voices.Get(guildID)
	if session == nil || !session.IsConnected() {
		return 0, ErrNotConnected
	}

	_, hasCurrent := p.queues.PeekCurrent(guildID)
	switch {
	case hasCurrent && session.IsPlaying() && !session.IsPaused():
		return TogglePaused, p.Pause(ctx, guildID)
	case hasCurrent && session.IsPaused():
		return ToggleResumed, p.Resume(ctx, guildID)
	}

	if p.queues.Snapshot(guildID).IsEmpty() {
		return 0, ErrQueueEmpty
	}
	if _, ok := p.Advance(ctx, guildID); !ok {
		return 0, ErrQueueEmpty
	}
	return ToggleStarted, nil
}

// AdjustVolume changes the volume by delta after snapping the current value
// to a multiple of ten. The result is clamped to 0..200.
func (p *PlaybackService) AdjustVolume(ctx context.Context, guildID snowflake.ID, delta int) (int, error) {
	session := p.voices.Get(guildID)
	if session == nil || !session.IsConnected() {
		return 0, ErrNotConnected
	}

	volume := clampVolume(roundVolume(session.Volume()) + delta)
	if err := session.SetVolume(ctx, volume); err != nil {
		return 0, err
	}
	p.controller.Update(ctx, guildID)
	return volume, nil
}

// Leave disconnects the guild and discards its queue.
func (p *PlaybackService) Leave(ctx context.Context, guildID snowflake.ID) error {
	unlock := p.locks.lock(guildID)
	err := p.voices.Leave(ctx, guildID)
	p.queues.ClearAll(guildID)
	p.setPlaying(guildID, 0)
	unlock()

	p.timer.ClearTimer(guildID)
	p.controller.Update(ctx, guildID)

	if err != nil {
		return err
	}
	slog.Info("left voice channel", "guild", guildID)
	return nil
}

// HandleDisconnected cleans up after the bot was removed from voice by
// someone else.
func (p *PlaybackService) HandleDisconnected(ctx context.Context, guildID snowflake.ID) {
	unlock := p.locks.lock(guildID)
	p.voices.Clear(guildID)
	p.queues.ClearAll(guildID)
	p.setPlaying(guildID, 0)
	unlock()

	p.timer.ClearTimer(guildID)
	p.controller.Update(ctx, guildID)

	slog.Info("voice session ended externally", "guild", guildID)
}

// advanceFrom advances only if playID is still the active start.
func (p *PlaybackService) advanceFrom(ctx context.Context, guildID snowflake.ID, playID uint64) bool {
	unlock := p.locks.lock(guildID)
	defer unlock()

	if playID == 0 || p.playingID(guildID) != playID {
		slog.Debug("ignoring stale playback finish",
			"guild", guildID,
			"play_id", playID,
		)
		return false
	}
	p.advanceLocked(ctx, guildID)
	return true
}

// advanceLocked runs the play-next loop. Songs whose stream cannot be
// refreshed or started are dropped from the current slot so repeat modes
// never select them again. The caller holds the guild lock.
func (p *PlaybackService) advanceLocked(ctx context.Context, guildID snowflake.ID) (domain.Song, bool) {
	session := p.voices.Get(guildID)
	if session == nil || !session.IsConnected() {
		p.queues.SetCurrent(guildID, nil)
		p.setPlaying(guildID, 0)
		return domain.Song{}, false
	}

	for {
		next, ok := p.queues.SelectNext(guildID)
		if !ok {
			p.queues.SetCurrent(guildID, nil)
			p.setPlaying(guildID, 0)
			if session.IsPlaying() || session.IsPaused() {
				if err := session.Stop(ctx); err != nil {
					slog.Warn("failed to stop session", "guild", guildID, "error", err)
				}
			}
			p.armIdleTimer(guildID)
			slog.Debug("queue exhausted", "guild", guildID)
			return domain.Song{}, false
		}

		streamRef, ok := p.resolver.RefreshStreamRef(ctx, next.WebpageRef)
		if !ok {
			slog.Warn("skipping song without a playable stream",
				"guild", guildID,
				"title", next.Title,
			)
			p.queues.SetCurrent(guildID, nil)
			continue
		}

		fresh := next
		fresh.StreamRef = streamRef
		p.queues.SetCurrent(guildID, &fresh)

		playID := p.nextPlayID()
		if err := session.Play(ctx, streamRef, playID); err != nil {
			slog.Error("failed to start playback, skipping",
				"guild", guildID,
				"title", next.Title,
				"error", err,
			)
			p.queues.SetCurrent(guildID, nil)
			continue
		}

		p.setPlaying(guildID, playID)
		p.timer.ClearTimer(guildID)

		slog.Info("now playing",
			"guild", guildID,
			"title", fresh.Title,
		)
		return fresh, true
	}
}

// armIdleTimer starts the idle countdown when playback went idle in a channel
// nobody is listening in. A countdown that fired during playback was dropped,
// so this is the only thing left to disconnect such a guild.
func (p *PlaybackService) armIdleTimer(guildID snowflake.ID) {
	if p.voices.IsAlone(guildID) {
		p.timer.StartTimer(guildID)
	}
}

// isActive reports whether the guild is already playing or paused.
func (p *PlaybackService) isActive(guildID snowflake.ID) bool {
	if p.playingID(guildID) != 0 {
		return true
	}
	session := p.voices.Get(guildID)
	return session != nil && (session.IsPlaying() || session.IsPaused())
}

// activeSession returns the session of a guild that has a current song.
func (p *PlaybackService) activeSession(guildID snowflake.ID) (ports.VoiceSession, error) {
	session := p.voices.Get(guildID)
	if session == nil || !session.IsConnected() {
		return nil, ErrNotConnected
	}
	if _, ok := p.queues.PeekCurrent(guildID); !ok {
		return nil, ErrNotPlaying
	}
	return session, nil
}

func (p *PlaybackService) playingID(guildID snowflake.ID) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing[guildID]
}

// setPlaying records the active play ID; zero marks the guild idle.
func (p *PlaybackService) setPlaying(guildID snowflake.ID, playID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if playID == 0 {
		delete(p.playing, guildID)
		return
	}
	p.playing[guildID] = playID
}

func (p *PlaybackService) nextPlayID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPlayID++
	return p.lastPlayID
}

// roundVolume snaps a volume to the nearest multiple of ten.
func roundVolume(v int) int {
	return (v + volumeStep/2) / volumeStep * volumeStep
}

func clampVolume(v int) int {
	return max(minVolume, min(maxVolume, v))
}
