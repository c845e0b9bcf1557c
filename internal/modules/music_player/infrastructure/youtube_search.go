package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// Verify YouTubeSearch implements the interface.
var _ ports.SearchSuggester = (*YouTubeSearch)(nil)

// YouTubeSearch serves autocomplete suggestions from YouTube search.
type YouTubeSearch struct {
	client *ytsearch.Client
}

// NewYouTubeSearch creates a new YouTubeSearch.
func NewYouTubeSearch() *YouTubeSearch {
	return &YouTubeSearch{client: ytsearch.NewClient(nil)}
}

// Suggest implements ports.SearchSuggester.
func (s *YouTubeSearch) Suggest(
	ctx context.Context,
	query string,
	limit int,
) ([]ports.Suggestion, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	suggestions := make([]ports.Suggestion, 0, limit)
	for _, r := range res.Results {
		if len(suggestions) >= limit {
			break
		}
		if r.VideoID == "" || r.Title == "" {
			continue
		}
		suggestions = append(suggestions, ports.Suggestion{
			Title:    r.Title,
			URL:      youtubeWatchURL + r.VideoID,
			Duration: parseColonDuration(r.Duration),
		})
	}
	return suggestions, nil
}

// parseColonDuration parses "3:20" or "1:05:20". Malformed input yields 0.
func parseColonDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	var total int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
