package ports

import "github.com/sglre6355/tunebot/internal/modules/music_player/domain"

// EventPublisher defines the interface for publishing events asynchronously.
type EventPublisher interface {
	PublishPlaybackFinished(event domain.PlaybackFinishedEvent)
}
