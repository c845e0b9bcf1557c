package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

// ControllerRenderer builds the embed and the controls of a controller
// message.
type ControllerRenderer func(state domain.RenderedState) (*discordgo.MessageEmbed, []discordgo.MessageComponent)

// Verify DiscordMessageTransport implements the interface.
var _ ports.MessageTransport = (*DiscordMessageTransport)(nil)

// DiscordMessageTransport sends and edits controller messages through the
// Discord REST API. Edits are spaced per channel so bursts of state changes
// do not run into Discord's rate limits.
type DiscordMessageTransport struct {
	session      *discordgo.Session
	render       ControllerRenderer
	editInterval time.Duration
	httpClient   *http.Client

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
	thumbs   map[string]string
}

// NewDiscordMessageTransport creates a new DiscordMessageTransport.
func NewDiscordMessageTransport(
	session *discordgo.Session,
	render ControllerRenderer,
	editInterval time.Duration,
) *DiscordMessageTransport {
	return &DiscordMessageTransport{
		session:      session,
		render:       render,
		editInterval: editInterval,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		limiters: make(map[snowflake.ID]*rate.Limiter),
		thumbs:   make(map[string]string),
	}
}

// SendController implements ports.MessageTransport.
func (t *DiscordMessageTransport) SendController(
	ctx context.Context,
	channelID snowflake.ID,
	state domain.RenderedState,
) (snowflake.ID, error) {
	embed, components := t.build(ctx, state)

	msg, err := t.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return 0, classifyRESTError(err)
	}

	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// EditController implements ports.MessageTransport.
func (t *DiscordMessageTransport) EditController(
	ctx context.Context,
	record domain.ControllerRecord,
	state domain.RenderedState,
) error {
	if err := t.limiter(record.ChannelID).Wait(ctx); err != nil {
		return err
	}

	embed, components := t.build(ctx, state)
	embeds := []*discordgo.MessageEmbed{embed}

	edit := discordgo.NewMessageEdit(record.ChannelID.String(), record.MessageID.String())
	edit.Embeds = &embeds
	edit.Components = &components

	_, err := t.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return classifyRESTError(err)
}

// FetchMessage implements ports.MessageTransport.
func (t *DiscordMessageTransport) FetchMessage(
	ctx context.Context,
	channelID, messageID snowflake.ID,
) error {
	_, err := t.session.ChannelMessage(
		channelID.String(),
		messageID.String(),
		discordgo.WithContext(ctx),
	)
	return classifyRESTError(err)
}

// DeleteMessage implements ports.MessageTransport.
func (t *DiscordMessageTransport) DeleteMessage(
	ctx context.Context,
	channelID, messageID snowflake.ID,
) error {
	err := t.session.ChannelMessageDelete(
		channelID.String(),
		messageID.String(),
		discordgo.WithContext(ctx),
	)
	return classifyRESTError(err)
}

// SendNotice implements ports.MessageTransport.
func (t *DiscordMessageTransport) SendNotice(
	ctx context.Context,
	channelID snowflake.ID,
	text string,
) error {
	_, err := t.session.ChannelMessageSend(channelID.String(), text, discordgo.WithContext(ctx))
	return classifyRESTError(err)
}

func (t *DiscordMessageTransport) build(
	ctx context.Context,
	state domain.RenderedState,
) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed, components := t.render(state)
	if state.HasSong() && embed.Thumbnail == nil {
		if thumbnailURL := t.thumbnail(ctx, state.SourceID, state.WebpageRef); thumbnailURL != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
		}
	}
	return embed, components
}

// limiter returns the edit limiter of a channel.
func (t *DiscordMessageTransport) limiter(channelID snowflake.ID) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[channelID]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.editInterval), 1)
		t.limiters[channelID] = l
	}
	return l
}

// thumbnail returns the best YouTube thumbnail for a video, or "" for other
// sources. Results are cached per video.
func (t *DiscordMessageTransport) thumbnail(ctx context.Context, videoID, webpageRef string) string {
	if videoID == "" || !isYouTubeRef(webpageRef) {
		return ""
	}

	t.mu.Lock()
	cached, ok := t.thumbs[videoID]
	t.mu.Unlock()
	if ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var found string
	for _, quality := range []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"} {
		candidate := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if t.urlExists(ctx, candidate) {
			found = candidate
			break
		}
	}

	t.mu.Lock()
	t.thumbs[videoID] = found
	t.mu.Unlock()
	return found
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (t *DiscordMessageTransport) urlExists(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

func isYouTubeRef(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return host == "youtube.com" || host == "m.youtube.com" ||
		host == "music.youtube.com" || host == "youtu.be"
}

// classifyRESTError maps Discord's "unknown message/channel" responses to
// ports.ErrMessageNotFound.
func classifyRESTError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %w", ports.ErrMessageNotFound, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ports.ErrMessageNotFound, err)
	}
	return err
}
