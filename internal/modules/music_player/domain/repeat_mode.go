package domain

// RepeatMode represents how playback continues once the current song finishes.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Default: play the queue once
	RepeatOne                   // Replay the current song
	RepeatAll                   // Loop the whole queue in ring order
)

// Next returns the mode that follows m in the OFF -> ONE -> ALL -> OFF cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatOff
	}
}

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// ParseRepeatMode converts a string to domain.RepeatMode.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatOff
	}
}
