package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// StreamResolver turns user input into songs and refreshes stream references
// right before playback.
type StreamResolver struct {
	provider ports.MediaProvider
}

// NewStreamResolver creates a new StreamResolver.
func NewStreamResolver(provider ports.MediaProvider) *StreamResolver {
	return &StreamResolver{provider: provider}
}

// ResolveNew resolves a URL or search term to a single song.
func (r *StreamResolver) ResolveNew(ctx context.Context, input string) (domain.Song, error) {
	ref := domain.NewReference(input)
	if !ref.IsValid() {
		return domain.Song{}, ErrInvalidReference
	}
	if ref.IsPlaylist() {
		return domain.Song{}, ErrPlaylistsUnsupported
	}

	info, err := r.provider.Lookup(ctx, ref.Raw)
	switch {
	case errors.Is(err, ports.ErrPlaylistReference):
		return domain.Song{}, ErrPlaylistsUnsupported
	case errors.Is(err, ports.ErrMediaNotFound):
		return domain.Song{}, ErrNoResultsFound
	case errors.Is(err, ports.ErrMediaRestricted):
		return domain.Song{}, ErrPrivateOrRestrictedMedia
	case err != nil:
		return domain.Song{}, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}
	if info == nil {
		return domain.Song{}, ErrNoResultsFound
	}

	webpageRef := info.WebpageURL
	if webpageRef == "" && ref.IsURL {
		webpageRef = ref.Raw
	}

	song, err := domain.NewSong(info.Title, info.StreamURL, webpageRef, info.Duration, info.ID)
	if err != nil {
		return domain.Song{}, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}
	return song, nil
}

// RefreshStreamRef fetches a fresh stream reference for a webpage reference.
// Failures are logged and reported as false.
func (r *StreamResolver) RefreshStreamRef(ctx context.Context, webpageRef string) (string, bool) {
	info, err := r.provider.Lookup(ctx, webpageRef)
	if err != nil {
		slog.Warn("failed to refresh stream reference",
			"webpage", webpageRef,
			"error", err,
		)
		return "", false
	}
	if info == nil || info.StreamURL == "" {
		slog.Warn("provider returned no stream reference", "webpage", webpageRef)
		return "", false
	}
	return info.StreamURL, true
}
