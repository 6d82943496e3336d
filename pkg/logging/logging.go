package logging

import (
	"log/slog"
	"os"
)

const (
	// KeyAppName is the key for the application name.
	KeyAppName = `app`

	// KeyError is the key for an error.
	KeyError = `err`

	// KeyDal is the key for the data access layer.
	KeyDal = `dal`

	// KeyGuild is the key for a guild ID.
	KeyGuild = `guild`

	// KeyUser is the key for a user ID.
	KeyUser = `user`

	// KeyChannel is the key for a channel ID.
	KeyChannel = `channel`
)

// Name is the name of the application as used by the logger.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// appName is the name of the application.
	appName string
}

// NewConfig creates a new logging configuration.
func NewConfig(name Name) *Config {
	return &Config{
		appName: string(name),
	}
}

// CommonLogger creates the common logger for the application. The logger is
// also set as the slog default.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	})

	l := slog.New(h).With(
		slog.String(KeyAppName, c.appName),
	)

	slog.SetDefault(l)
	return l, nil
}
