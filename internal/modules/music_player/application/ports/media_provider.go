package ports

import (
	"context"
	"errors"
	"time"
)

// Errors reported by media providers.
var (
	ErrMediaNotFound     = errors.New("media not found")
	ErrMediaRestricted   = errors.New("media is private or restricted")
	ErrPlaylistReference = errors.New("reference is a playlist")
)

// MediaInfo is the metadata a media provider returns for one item.
type MediaInfo struct {
	ID         string
	Title      string
	StreamURL  string // time-limited
	WebpageURL string // stable
	Duration   time.Duration
}

// MediaProvider resolves URLs or search terms into media metadata.
type MediaProvider interface {
	// Lookup resolves a URL, or a search term to its first result.
	Lookup(ctx context.Context, reference string) (*MediaInfo, error)
}

// Suggestion is one search hit offered while the user is typing.
type Suggestion struct {
	Title    string
	URL      string
	Duration time.Duration
}

// SearchSuggester returns quick search results for autocomplete.
type SearchSuggester interface {
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
}
