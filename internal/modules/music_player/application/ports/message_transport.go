package ports

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// ErrMessageNotFound is returned when the referenced message or its channel
// no longer exists.
var ErrMessageNotFound = errors.New("message not found")

// MessageTransport sends and maintains controller messages.
type MessageTransport interface {
	// SendController posts a new controller message and returns its ID.
	SendController(ctx context.Context, channelID snowflake.ID, state domain.RenderedState) (snowflake.ID, error)

	// EditController re-renders an existing controller message, replacing its
	// embed and attaching a fresh set of controls.
	EditController(ctx context.Context, record domain.ControllerRecord, state domain.RenderedState) error

	// FetchMessage checks that a message still exists.
	FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) error

	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error

	// SendNotice posts a plain text message.
	SendNotice(ctx context.Context, channelID snowflake.ID, text string) error
}
