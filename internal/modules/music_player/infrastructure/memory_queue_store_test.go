package infrastructure

import (
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

func testSong(id string) domain.Song {
	return domain.Song{
		Title:      "Song " + id,
		StreamRef:  "stream-" + id,
		WebpageRef: "https://www.youtube.com/watch?v=" + id,
		Duration:   2 * time.Minute,
		SourceID:   id,
	}
}

func TestMemoryQueueStore_GuildIsolation(t *testing.T) {
	store := NewMemoryQueueStore()
	guildA := snowflake.ID(1)
	guildB := snowflake.ID(2)

	store.Enqueue(guildA, testSong("a"))
	store.ToggleRepeat(guildA)

	if snapshot := store.Snapshot(guildB); !snapshot.IsEmpty() || snapshot.Repeat != domain.RepeatOff {
		t.Errorf("expected untouched guild B, got %+v", snapshot)
	}
	if snapshot := store.Snapshot(guildA); len(snapshot.Pending) != 1 || snapshot.Repeat != domain.RepeatOne {
		t.Errorf("unexpected guild A state %+v", snapshot)
	}
	if store.Count() != 2 {
		t.Errorf("expected 2 guilds, got %d", store.Count())
	}
}

func TestMemoryQueueStore_FIFO(t *testing.T) {
	store := NewMemoryQueueStore()
	guildID := snowflake.ID(1)

	store.EnqueueAll(guildID, []domain.Song{testSong("a"), testSong("b")})
	store.Enqueue(guildID, testSong("c"))

	for _, want := range []string{"a", "b", "c"} {
		got, ok := store.DequeueNext(guildID)
		if !ok || got.SourceID != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, got.SourceID, ok)
		}
	}
	if _, ok := store.DequeueNext(guildID); ok {
		t.Error("expected empty queue")
	}
}

func TestMemoryQueueStore_SnapshotIsACopy(t *testing.T) {
	store := NewMemoryQueueStore()
	guildID := snowflake.ID(1)
	current := testSong("a")
	store.SetCurrent(guildID, &current)
	store.Enqueue(guildID, testSong("b"))

	snapshot := store.Snapshot(guildID)
	snapshot.Pending[0].Title = "mutated"
	snapshot.Current.Title = "mutated"

	again := store.Snapshot(guildID)
	if again.Pending[0].Title != "Song b" || again.Current.Title != "Song a" {
		t.Errorf("snapshot mutation leaked into the store: %+v", again)
	}
}

func TestMemoryQueueStore_SelectNextAndClear(t *testing.T) {
	store := NewMemoryQueueStore()
	guildID := snowflake.ID(1)
	store.Enqueue(guildID, testSong("a"))
	store.Enqueue(guildID, testSong("b"))

	next, ok := store.SelectNext(guildID)
	if !ok || next.SourceID != "a" {
		t.Fatalf("expected a, got %q", next.SourceID)
	}
	store.SetCurrent(guildID, &next)

	store.ClearQueue(guildID)
	if current, ok := store.PeekCurrent(guildID); !ok || current.SourceID != "a" {
		t.Error("expected ClearQueue to keep the current song")
	}

	store.ToggleRepeat(guildID)
	store.ClearAll(guildID)
	snapshot := store.Snapshot(guildID)
	if !snapshot.IsEmpty() || snapshot.Repeat != domain.RepeatOff {
		t.Errorf("expected full reset, got %+v", snapshot)
	}
}

func TestMemoryQueueStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryQueueStore()
	var wg sync.WaitGroup

	// Concurrent writes across guilds
	for i := range 100 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			guildID := snowflake.ID(id % 10)
			store.Enqueue(guildID, testSong("x"))
			store.Snapshot(guildID)
		}(i)
	}
	wg.Wait()

	total := 0
	for g := range 10 {
		total += len(store.Snapshot(snowflake.ID(g)).Pending)
	}
	if total != 100 {
		t.Errorf("expected 100 songs, got %d", total)
	}
}
