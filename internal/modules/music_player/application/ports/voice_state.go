package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider defines the interface for getting Discord voice state information.
type VoiceStateProvider interface {
	// UserVoiceChannel returns the voice channel the user is currently in.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, bool)

	// HumanCount returns how many non-bot members are in the voice channel.
	HumanCount(guildID, channelID snowflake.ID) int
}
