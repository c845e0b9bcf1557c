package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// MemoryQueueStore is an in-memory implementation of domain.QueueStore.
// Each guild's queue has its own lock, so guilds never contend with each other.
type MemoryQueueStore struct {
	mu     sync.RWMutex
	queues map[snowflake.ID]*guildQueueEntry
}

type guildQueueEntry struct {
	mu    sync.Mutex
	queue *domain.GuildQueue
}

// NewMemoryQueueStore creates a new MemoryQueueStore.
func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{
		queues: make(map[snowflake.ID]*guildQueueEntry),
	}
}

// entry returns the guild's entry, creating an empty queue on first use.
func (s *MemoryQueueStore) entry(guildID snowflake.ID) *guildQueueEntry {
	s.mu.RLock()
	e, ok := s.queues[guildID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.queues[guildID]; ok {
		return e
	}
	e = &guildQueueEntry{queue: domain.NewGuildQueue()}
	s.queues[guildID] = e
	return e
}

// with runs fn while holding the guild's lock.
func (s *MemoryQueueStore) with(guildID snowflake.ID, fn func(q *domain.GuildQueue)) {
	e := s.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.queue)
}

// Enqueue appends a song to the guild's pending list.
func (s *MemoryQueueStore) Enqueue(guildID snowflake.ID, song domain.Song) {
	s.with(guildID, func(q *domain.GuildQueue) { q.Enqueue(song) })
}

// EnqueueAll appends songs in order.
func (s *MemoryQueueStore) EnqueueAll(guildID snowflake.ID, songs []domain.Song) {
	s.with(guildID, func(q *domain.GuildQueue) { q.EnqueueAll(songs) })
}

// DequeueNext pops the head of the pending list.
func (s *MemoryQueueStore) DequeueNext(guildID snowflake.ID) (song domain.Song, ok bool) {
	s.with(guildID, func(q *domain.GuildQueue) { song, ok = q.DequeueNext() })
	return song, ok
}

// PeekCurrent returns the current song without changing it.
func (s *MemoryQueueStore) PeekCurrent(guildID snowflake.ID) (song domain.Song, ok bool) {
	s.with(guildID, func(q *domain.GuildQueue) { song, ok = q.Current() })
	return song, ok
}

// SetCurrent replaces the current song; nil clears it.
func (s *MemoryQueueStore) SetCurrent(guildID snowflake.ID, song *domain.Song) {
	s.with(guildID, func(q *domain.GuildQueue) { q.SetCurrent(song) })
}

// SelectNext applies the repeat mode and returns the next song to play.
func (s *MemoryQueueStore) SelectNext(guildID snowflake.ID) (song domain.Song, ok bool) {
	s.with(guildID, func(q *domain.GuildQueue) { song, ok = q.SelectNext() })
	return song, ok
}

// ClearQueue empties the pending list only.
func (s *MemoryQueueStore) ClearQueue(guildID snowflake.ID) {
	s.with(guildID, func(q *domain.GuildQueue) { q.ClearQueue() })
}

// ClearAll empties pending and current and resets the repeat mode.
func (s *MemoryQueueStore) ClearAll(guildID snowflake.ID) {
	s.with(guildID, func(q *domain.GuildQueue) { q.ClearAll() })
}

// ToggleRepeat cycles the repeat mode and returns the new value.
func (s *MemoryQueueStore) ToggleRepeat(guildID snowflake.ID) (mode domain.RepeatMode) {
	s.with(guildID, func(q *domain.GuildQueue) { mode = q.ToggleRepeat() })
	return mode
}

// Snapshot returns a copy of the guild's queue state.
func (s *MemoryQueueStore) Snapshot(guildID snowflake.ID) (snapshot domain.QueueSnapshot) {
	s.with(guildID, func(q *domain.GuildQueue) {
		snapshot.Pending = q.Pending()
		snapshot.Repeat = q.RepeatMode()
		if current, ok := q.Current(); ok {
			snapshot.Current = &current
		}
	})
	return snapshot
}

// Count returns the number of guilds with a queue (for testing/monitoring).
func (s *MemoryQueueStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.queues)
}

// Ensure MemoryQueueStore implements domain.QueueStore.
var _ domain.QueueStore = (*MemoryQueueStore)(nil)
