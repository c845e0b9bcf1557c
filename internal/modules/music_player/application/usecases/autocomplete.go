package usecases

import (
	"context"

	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// MaxSuggestions is the most choices an autocomplete response may carry.
const MaxSuggestions = 10

// AutocompleteService offers search results while the user types a query.
type AutocompleteService struct {
	suggester ports.SearchSuggester
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(suggester ports.SearchSuggester) *AutocompleteService {
	return &AutocompleteService{suggester: suggester}
}

// Suggest returns up to MaxSuggestions results for a search term.
// URLs and empty input yield no suggestions.
func (s *AutocompleteService) Suggest(ctx context.Context, query string) ([]ports.Suggestion, error) {
	ref := domain.NewReference(query)
	if !ref.IsValid() || ref.IsURL {
		return nil, nil
	}

	suggestions, err := s.suggester.Suggest(ctx, ref.Raw, MaxSuggestions)
	if err != nil {
		return nil, err
	}
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions, nil
}
