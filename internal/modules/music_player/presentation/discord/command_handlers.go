package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/usecases"
)

// resolveTimeout bounds a play request, which resolves media and may join
// a voice channel first.
const resolveTimeout = 45 * time.Second

// Interaction input errors, shown to the user as is.
var (
	errInvalidGuild   = errors.New("Invalid guild")
	errInvalidUser    = errors.New("Invalid user")
	errInvalidChannel = errors.New("Invalid channel")
)

// Services are the use cases the Discord handlers drive.
type Services struct {
	Voices     *usecases.VoiceRegistry
	Playback   *usecases.PlaybackService
	Queue      *usecases.QueueService
	Controller *usecases.ControllerSync
}

// join connects to the caller's voice channel and re-renders the controller
// when the connection changed.
func (s Services) join(
	ctx context.Context,
	guildID, userID snowflake.ID,
) (*usecases.JoinOutput, error) {
	output, err := s.Voices.Join(ctx, usecases.JoinInput{
		GuildID: guildID,
		UserID:  userID,
	})
	if err != nil {
		return nil, err
	}
	if !output.AlreadyConnected {
		s.Controller.Update(ctx, guildID)
	}
	return output, nil
}

// play joins the caller's voice channel if needed, then requests a song.
func (s Services) play(
	ctx context.Context,
	guildID, userID snowflake.ID,
	query string,
) (*usecases.PlaySongOutput, error) {
	if !s.Voices.IsConnected(guildID) {
		if _, err := s.join(ctx, guildID, userID); err != nil {
			return nil, err
		}
	}
	return s.Playback.PlaySong(ctx, usecases.PlaySongInput{
		GuildID:     guildID,
		RequestedBy: userID,
		Reference:   query,
	})
}

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	svc Services
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(svc Services) *CommandHandlers {
	return &CommandHandlers{svc: svc}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, userID, err := parseCaller(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	output, err := h.svc.join(ctx, guildID, userID)
	if err != nil {
		return handleError(r, err)
	}

	if output.AlreadyConnected {
		return respondEphemeral(r, fmt.Sprintf("Already connected to <#%d>.", output.ChannelID))
	}
	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.ChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.svc.Playback.Leave(ctx, guildID); err != nil {
		return handleError(r, err)
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, err := parseCaller(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	if err := deferReply(r, false); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	output, err := h.svc.play(ctx, guildID, userID, query)
	if err != nil {
		return editError(r, i.GuildID, err)
	}
	return editEmbed(r, playedEmbed(output))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.svc.Playback.Stop(ctx, guildID); err != nil {
		return handleError(r, err)
	}

	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.svc.Playback.Pause(ctx, guildID); err != nil {
		return handleError(r, err)
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.svc.Playback.Resume(ctx, guildID); err != nil {
		return handleError(r, err)
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	output, err := h.svc.Playback.Skip(ctx, guildID)
	if err != nil {
		return handleError(r, err)
	}

	return respondSuccess(r, skipDescription(output))
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	snapshot, err := h.svc.Queue.List(guildID)
	if err != nil {
		return handleError(r, err)
	}

	return respondEmbed(r, queueEmbed(snapshot), false)
}

// HandleRepeat handles the /repeat command.
func (h *CommandHandlers) HandleRepeat(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	mode := h.svc.Queue.ToggleRepeat(ctx, guildID)

	return respondSuccess(r, fmt.Sprintf("%s Repeat mode: **%s**", repeatEmojis[mode], mode))
}

// HandleController handles the /controller command.
func (h *CommandHandlers) HandleController(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, channelID, err := parseChannel(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	output, err := h.svc.Controller.CreateOrUpdate(ctx, guildID, channelID)
	if err != nil {
		return err
	}

	if output.Created {
		return respondEphemeral(r, "Controller created.")
	}
	return respondEphemeral(r, "Controller updated.")
}

// HandleMusicChannel handles the /musicchannel command.
func (h *CommandHandlers) HandleMusicChannel(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, channelID, err := parseChannel(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	if _, err := h.svc.Controller.SetMusicChannel(ctx, guildID, channelID); err != nil {
		return err
	}

	slog.Info("music channel set", "guild", guildID, "channel", channelID)

	return respondEphemeral(r, fmt.Sprintf("Music channel set to <#%d>.", channelID))
}

// playedEmbed describes the outcome of a play request.
func playedEmbed(output *usecases.PlaySongOutput) *discordgo.MessageEmbed {
	song := output.Song
	link := songLink(song.Title, song.WebpageRef, song.FormattedDuration())

	description := fmt.Sprintf("Added %s to the queue (position %d).", link, output.Queued)
	if output.Started {
		description = fmt.Sprintf("Now playing %s.", link)
	}
	return &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}
}

func skipDescription(output *usecases.SkipOutput) string {
	description := fmt.Sprintf("Skipped **%s**.", output.Skipped.Title)
	if output.Next != nil {
		description += fmt.Sprintf(" Now playing **%s**.", output.Next.Title)
	}
	return description
}

// parseCaller returns the guild and the invoking member.
func parseCaller(i *discordgo.InteractionCreate) (snowflake.ID, snowflake.ID, error) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return 0, 0, errInvalidGuild
	}
	if i.Member == nil || i.Member.User == nil {
		return 0, 0, errInvalidUser
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return 0, 0, errInvalidUser
	}
	return guildID, userID, nil
}

// parseChannel returns the guild and the channel the interaction came from.
func parseChannel(i *discordgo.InteractionCreate) (snowflake.ID, snowflake.ID, error) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return 0, 0, errInvalidGuild
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return 0, 0, errInvalidChannel
	}
	return guildID, channelID, nil
}
