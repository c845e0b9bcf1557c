package discord

import "github.com/bwmarrin/discordgo"

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	dmPermission := false

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join your voice channel",
		},
		{
			Name:        "leave",
			Description: "Stop playback and leave the voice channel",
		},
		{
			Name:        "play",
			Description: "Play a song from a URL or search term",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "query",
					Description:  "URL or search term",
					Required:     true,
					Autocomplete: true,
					MaxLength:    200,
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playback and clear the queue",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current song",
		},
		{
			Name:        "queue",
			Description: "Show the queue",
		},
		{
			Name:        "repeat",
			Description: "Cycle the repeat mode (off, one, all)",
		},
		{
			Name:        "controller",
			Description: "Show the music controller in this channel",
		},
		{
			Name:        "musicchannel",
			Description: "Make this channel the music channel",
		},
	}

	for _, cmd := range commands {
		cmd.DMPermission = &dmPermission
	}
	return commands
}
