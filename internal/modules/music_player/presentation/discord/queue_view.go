package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

const (
	maxFieldLength = 1024
	maxQueueFields = 20 // Discord allows 25 fields per embed
)

// queueEmbed lists the current song and everything pending.
func queueEmbed(snapshot domain.QueueSnapshot) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Music Queue",
		Color: colorQueue,
	}

	if snapshot.Current != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "🎵 Currently Playing",
			Value: truncate(
				songLink(snapshot.Current.Title, snapshot.Current.WebpageRef, snapshot.Current.FormattedDuration()),
				maxFieldLength,
			),
		})
	}

	if len(snapshot.Pending) > 0 {
		lines := make([]string, len(snapshot.Pending))
		for i, song := range snapshot.Pending {
			lines[i] = fmt.Sprintf("%d. %s", i+1, songLink(song.Title, song.WebpageRef, song.FormattedDuration()))
		}

		chunks := chunkLines(lines, maxFieldLength)
		for i, chunk := range chunks {
			if i == maxQueueFields {
				embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
					Name:  "📝 Up Next (continued)",
					Value: fmt.Sprintf("...and %d more part(s)", len(chunks)-i),
				})
				break
			}

			name := "📝 Up Next"
			if i > 0 {
				name = fmt.Sprintf("📝 Up Next (Part %d)", i+1)
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  name,
				Value: chunk,
			})
		}
	}

	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf(
			"Total songs: %d | Total duration: %s | Repeat: %s",
			snapshot.TotalSongs(),
			domain.FormatDuration(snapshot.TotalDuration()),
			snapshot.Repeat,
		),
	}
	return embed
}

// chunkLines joins lines with newlines into chunks of at most limit runes.
// A single line longer than limit is truncated.
func chunkLines(lines []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, line := range lines {
		line = truncate(line, limit)
		lineLen := len([]rune(line))

		if currentLen > 0 && currentLen+1+lineLen > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(line)
		currentLen += lineLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
