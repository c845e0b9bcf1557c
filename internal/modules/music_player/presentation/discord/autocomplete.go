package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

const (
	maxChoiceNameLength = 100
	minAutocompleteLen  = 2

	// Discord drops autocomplete responses after three seconds.
	autocompleteTimeout = 2500 * time.Millisecond
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{autocomplete: autocomplete}
}

// HandlePlay suggests search results for the play command's query option.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	if len([]rune(query)) >= minAutocompleteLen {
		suggestions, err := h.autocomplete.Suggest(ctx, query)
		if err != nil {
			slog.Warn("autocomplete search failed", "guild", i.GuildID, "error", err)
		}
		choices = suggestionChoices(suggestions)
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	}); err != nil {
		slog.Debug("failed to answer autocomplete", "guild", i.GuildID, "error", err)
	}
}

// suggestionChoices converts suggestions into choices whose value is the
// video URL, so the chosen option plays exactly what was shown.
func suggestionChoices(suggestions []ports.Suggestion) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(suggestions))
	for _, suggestion := range suggestions {
		name := suggestion.Title
		if suggestion.Duration > 0 {
			name = fmt.Sprintf("%s (%s)", suggestion.Title, domain.FormatDuration(suggestion.Duration))
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, maxChoiceNameLength),
			Value: suggestion.URL,
		})
	}
	return choices
}
