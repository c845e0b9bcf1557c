package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// QueueStore holds one GuildQueue per guild.
// Implementations must be safe for concurrent use across guilds; callers
// serialize multi-step operations on the same guild.
type QueueStore interface {
	// Enqueue appends a song to the guild's pending list.
	Enqueue(guildID snowflake.ID, song Song)

	// EnqueueAll appends songs in order.
	EnqueueAll(guildID snowflake.ID, songs []Song)

	// DequeueNext pops the head of the pending list.
	DequeueNext(guildID snowflake.ID) (Song, bool)

	// PeekCurrent returns the current song without changing it.
	PeekCurrent(guildID snowflake.ID) (Song, bool)

	// SetCurrent replaces the current song; nil clears it.
	SetCurrent(guildID snowflake.ID, song *Song)

	// SelectNext applies the repeat mode and returns the next song to play.
	SelectNext(guildID snowflake.ID) (Song, bool)

	// ClearQueue empties the pending list only.
	ClearQueue(guildID snowflake.ID)

	// ClearAll empties pending and current and resets the repeat mode.
	ClearAll(guildID snowflake.ID)

	// ToggleRepeat cycles the repeat mode and returns the new value.
	ToggleRepeat(guildID snowflake.ID) RepeatMode

	// Snapshot returns a copy of the guild's queue state.
	Snapshot(guildID snowflake.ID) QueueSnapshot
}

// QueueSnapshot is a point-in-time copy of a guild's queue.
type QueueSnapshot struct {
	Current *Song
	Pending []Song
	Repeat  RepeatMode
}

// IsEmpty reports whether there is neither a current nor a pending song.
func (s QueueSnapshot) IsEmpty() bool {
	return s.Current == nil && len(s.Pending) == 0
}

// TotalSongs counts the current song and all pending songs.
func (s QueueSnapshot) TotalSongs() int {
	n := len(s.Pending)
	if s.Current != nil {
		n++
	}
	return n
}

// TotalDuration sums the current song and all pending songs.
func (s QueueSnapshot) TotalDuration() time.Duration {
	var total time.Duration
	if s.Current != nil {
		total += s.Current.Duration
	}
	for _, song := range s.Pending {
		total += song.Duration
	}
	return total
}
