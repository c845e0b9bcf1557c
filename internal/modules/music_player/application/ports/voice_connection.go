package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnector opens voice sessions through the platform connection API.
type VoiceConnector interface {
	// Connect joins the given voice channel and returns the live session.
	// It returns only once the connection is usable.
	Connect(ctx context.Context, guildID, channelID snowflake.ID) (VoiceSession, error)
}

// VoiceSession is the live voice connection of one guild.
//
// When a source passed to Play ends on its own, the session publishes a
// domain.PlaybackFinishedEvent instead of invoking a callback.
type VoiceSession interface {
	GuildID() snowflake.ID
	ChannelID() snowflake.ID

	IsConnected() bool
	IsPlaying() bool
	IsPaused() bool

	// Play starts streamRef, replacing anything currently playing. The
	// finish event of this start carries playID back.
	Play(ctx context.Context, streamRef string, playID uint64) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Stop halts playback without publishing a finish event.
	Stop(ctx context.Context) error

	// Volume returns the output volume in percent.
	Volume() int
	SetVolume(ctx context.Context, percent int) error

	// MoveTo moves the connection to another channel of the same guild.
	MoveTo(ctx context.Context, channelID snowflake.ID) error
	Disconnect(ctx context.Context) error
}
