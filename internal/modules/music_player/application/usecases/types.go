package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Song is an alias for domain.Song.
type Song = domain.Song

// RepeatMode is an alias for domain.RepeatMode.
type RepeatMode = domain.RepeatMode

// QueueSnapshot is an alias for domain.QueueSnapshot.
type QueueSnapshot = domain.QueueSnapshot

// ControllerUpdater re-renders the controller of a guild after a state change.
// Implementations log failures instead of returning them.
type ControllerUpdater interface {
	Update(ctx context.Context, guildID snowflake.ID)
}

// IdleTimer schedules and cancels idle disconnects.
type IdleTimer interface {
	StartTimer(guildID snowflake.ID)
	ClearTimer(guildID snowflake.ID)
}

// Disconnector tears down a guild's voice session and playback state.
type Disconnector interface {
	Leave(ctx context.Context, guildID snowflake.ID) error
}

// IdleNotifier tells a guild that the bot is leaving because of inactivity.
type IdleNotifier interface {
	NotifyIdleDisconnect(ctx context.Context, guildID snowflake.ID)
}
