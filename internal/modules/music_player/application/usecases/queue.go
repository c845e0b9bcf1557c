package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// QueueService exposes read access and repeat-mode control of guild queues.
type QueueService struct {
	queues     domain.QueueStore
	controller ControllerUpdater
}

// NewQueueService creates a new QueueService.
func NewQueueService(queues domain.QueueStore, controller ControllerUpdater) *QueueService {
	return &QueueService{
		queues:     queues,
		controller: controller,
	}
}

// List returns the guild's queue.
func (q *QueueService) List(guildID snowflake.ID) (domain.QueueSnapshot, error) {
	snapshot := q.queues.Snapshot(guildID)
	if snapshot.IsEmpty() {
		return snapshot, ErrQueueEmpty
	}
	return snapshot, nil
}

// ToggleRepeat cycles the guild's repeat mode OFF -> ONE -> ALL -> OFF.
func (q *QueueService) ToggleRepeat(ctx context.Context, guildID snowflake.ID) domain.RepeatMode {
	mode := q.queues.ToggleRepeat(guildID)
	q.controller.Update(ctx, guildID)

	slog.Info("repeat mode changed", "guild", guildID, "mode", mode)
	return mode
}
