package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMissingWebpageRef is returned when a song cannot be re-resolved later.
var ErrMissingWebpageRef = errors.New("song has no webpage reference")

const unknownTitle = "Unknown"

// Song is a resolved, playable piece of media. It is a value type and is never
// mutated after construction.
type Song struct {
	Title      string
	StreamRef  string // time-limited, re-resolve from WebpageRef before use
	WebpageRef string // stable reference
	Duration   time.Duration
	SourceID   string
}

// NewSong normalizes provider metadata into a Song.
// An empty title becomes "Unknown" and negative durations become zero.
func NewSong(
	title string,
	streamRef string,
	webpageRef string,
	duration time.Duration,
	sourceID string,
) (Song, error) {
	webpageRef = strings.TrimSpace(webpageRef)
	if webpageRef == "" {
		return Song{}, ErrMissingWebpageRef
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = unknownTitle
	}

	if duration < 0 {
		duration = 0
	}

	return Song{
		Title:      title,
		StreamRef:  streamRef,
		WebpageRef: webpageRef,
		Duration:   duration.Truncate(time.Second),
		SourceID:   sourceID,
	}, nil
}

// DurationSeconds returns the duration in whole seconds.
func (s Song) DurationSeconds() int {
	return int(s.Duration / time.Second)
}

// FormattedDuration returns the duration as m:ss or h:mm:ss.
func (s Song) FormattedDuration() string {
	return FormatDuration(s.Duration)
}

// FormatDuration formats d as m:ss or h:mm:ss, or "Unknown" when d is zero.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds <= 0 {
		return unknownTitle
	}

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.Itoa(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
