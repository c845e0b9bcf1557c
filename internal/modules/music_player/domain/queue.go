package domain

// GuildQueue holds the playback queue of a single guild: the FIFO of pending
// songs, the current song slot and the repeat mode.
//
// GuildQueue is not safe for concurrent use; the owner serializes access.
type GuildQueue struct {
	pending []Song
	current *Song
	repeat  RepeatMode
}

// NewGuildQueue creates an empty queue with repeat off.
func NewGuildQueue() *GuildQueue {
	return &GuildQueue{
		pending: make([]Song, 0),
		repeat:  RepeatOff,
	}
}

// Enqueue appends a song to the tail of the pending list.
func (q *GuildQueue) Enqueue(song Song) {
	q.pending = append(q.pending, song)
}

// EnqueueAll appends songs in order.
func (q *GuildQueue) EnqueueAll(songs []Song) {
	q.pending = append(q.pending, songs...)
}

// DequeueNext pops the head of the pending list.
func (q *GuildQueue) DequeueNext() (Song, bool) {
	if len(q.pending) == 0 {
		return Song{}, false
	}

	head := q.pending[0]
	q.pending[0] = Song{}
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		// Drop the backing array so a long-lived queue does not pin old songs.
		q.pending = make([]Song, 0)
	}
	return head, true
}

// Current returns the current song, if any.
func (q *GuildQueue) Current() (Song, bool) {
	if q.current == nil {
		return Song{}, false
	}
	return *q.current, true
}

// SetCurrent replaces the current song. A nil song clears the slot.
func (q *GuildQueue) SetCurrent(song *Song) {
	if song == nil {
		q.current = nil
		return
	}
	s := *song
	q.current = &s
}

// Pending returns a copy of the pending songs in play order.
func (q *GuildQueue) Pending() []Song {
	result := make([]Song, len(q.pending))
	copy(result, q.pending)
	return result
}

// Len returns the number of pending songs.
func (q *GuildQueue) Len() int {
	return len(q.pending)
}

// RepeatMode returns the current repeat mode.
func (q *GuildQueue) RepeatMode() RepeatMode {
	return q.repeat
}

// ToggleRepeat advances the repeat mode and returns the new value.
func (q *GuildQueue) ToggleRepeat() RepeatMode {
	q.repeat = q.repeat.Next()
	return q.repeat
}

// ClearQueue empties the pending list only.
func (q *GuildQueue) ClearQueue() {
	q.pending = make([]Song, 0)
}

// ClearAll empties the pending list and the current slot and resets repeat.
func (q *GuildQueue) ClearAll() {
	q.pending = make([]Song, 0)
	q.current = nil
	q.repeat = RepeatOff
}

// SelectNext chooses the song that should play after the current one,
// applying the repeat mode:
//
//   - ONE with a current song re-selects it and leaves pending untouched.
//   - ALL with a current song and nothing pending re-selects it.
//   - ALL with a current song re-appends it to the tail before dequeuing.
//   - otherwise the head of pending is dequeued.
//
// SelectNext does not modify the current slot.
func (q *GuildQueue) SelectNext() (Song, bool) {
	if q.current != nil {
		switch q.repeat {
		case RepeatOne:
			return *q.current, true
		case RepeatAll:
			if len(q.pending) == 0 {
				return *q.current, true
			}
			q.pending = append(q.pending, *q.current)
		}
	}

	return q.DequeueNext()
}
