package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// NewZerolog creates the zerolog logger handed to the storage and metrics
// managers. It shares the destination and level with the slog side so both
// streams end up in the same place.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
