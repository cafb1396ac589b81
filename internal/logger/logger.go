package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the service logger at the requested level, falling back to
// info for unknown levels.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "community-trading-api").Logger().Level(lvl)
}
