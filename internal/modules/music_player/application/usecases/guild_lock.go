package usecases

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// guildLocks hands out one mutex per guild so work on different guilds never
// contends.
type guildLocks struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*sync.Mutex
}

// lock acquires the guild's mutex and returns its unlock function.
func (g *guildLocks) lock(guildID snowflake.ID) func() {
	g.mu.Lock()
	if g.locks == nil {
		g.locks = make(map[snowflake.ID]*sync.Mutex)
	}
	m, ok := g.locks[guildID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[guildID] = m
	}
	g.mu.Unlock()

	m.Lock()
	return m.Unlock
}
