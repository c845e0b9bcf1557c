package domain

import "github.com/disgoorg/snowflake/v2"

// ControllerRecord locates the persistent controller message of a guild.
type ControllerRecord struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// RenderedState is everything the controller message displays.
type RenderedState struct {
	Title         string // empty when nothing is current
	WebpageRef    string
	SourceID      string
	DurationLabel string
	Status        PlaybackStatus
	Repeat        RepeatMode
	Volume        int
	QueueLength   int
}

// HasSong reports whether a current song is shown.
func (r RenderedState) HasSong() bool {
	return r.Title != ""
}
