package discord

import (
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x3498DB
	colorQueue   = 0x9B59B6
)

const genericErrorMessage = "An error occurred while processing your request."

// userErrors are reported to the requesting user verbatim.
var userErrors = []error{
	usecases.ErrNotInVoiceChannel,
	usecases.ErrPlaylistsUnsupported,
	usecases.ErrNoResultsFound,
	usecases.ErrPrivateOrRestrictedMedia,
	usecases.ErrInvalidReference,
	usecases.ErrNotConnected,
	usecases.ErrNotPlaying,
	usecases.ErrAlreadyPaused,
	usecases.ErrNotPaused,
	usecases.ErrQueueEmpty,
}

// userMessage returns the message shown for err, and false if err is not a
// user-facing error.
func userMessage(err error) (string, bool) {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

// handleError reports user-facing errors to the user and hands everything
// else back to the bot, which logs it and answers generically.
func handleError(r bot.Responder, err error) error {
	if msg, ok := userMessage(err); ok {
		return respondError(r, msg)
	}
	return err
}

// editError is handleError for deferred responses, which the bot can no
// longer answer on the handler's behalf.
func editError(r bot.Responder, guildID string, err error) error {
	msg, ok := userMessage(err)
	if !ok {
		slog.Error("failed to handle interaction", "guild", guildID, "error", err)
		msg = genericErrorMessage
	}
	return editEmbed(r, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: msg,
		Color:       colorError,
	})
}

// Response helpers.

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}, false)
}

func respondEphemeral(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}, true)
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// deferReply acknowledges an interaction whose work may outlast Discord's
// three second response window.
func deferReply(r bot.Responder, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

// acknowledge answers a button press without changing the message; the
// controller is re-rendered separately.
func acknowledge(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
