package music_player

import (
	"fmt"
	"time"
)

// Media providers.
const (
	MediaProviderLavalink = "lavalink"
	MediaProviderYtdlp    = "ytdlp"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"`

	// MediaProvider resolves songs; Lavalink always plays them.
	MediaProvider string `env:"MEDIA_PROVIDER" envDefault:"lavalink"`

	IdleTimeout            time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	DatabasePath           string        `env:"DATABASE_PATH" envDefault:"tunebot.db"`
	ControllerEditInterval time.Duration `env:"CONTROLLER_EDIT_INTERVAL" envDefault:"1s"`
}

// Validate checks values the env tags cannot express.
func (c *Config) Validate() error {
	switch c.MediaProvider {
	case MediaProviderLavalink, MediaProviderYtdlp:
	default:
		return fmt.Errorf("invalid MEDIA_PROVIDER %q: must be %q or %q",
			c.MediaProvider, MediaProviderLavalink, MediaProviderYtdlp)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT must be positive, got %s", c.IdleTimeout)
	}
	if c.ControllerEditInterval < 0 {
		return fmt.Errorf("CONTROLLER_EDIT_INTERVAL must not be negative, got %s", c.ControllerEditInterval)
	}
	return nil
}
