// internal/logger/logger.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Levels lists the accepted log level names.
var Levels = []string{"off", "trace", "debug", "info", "warn", "error"}

// ParseLevel maps a level name to a zerolog level. "off" disables logging.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(name) {
	case "off":
		return zerolog.Disabled, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q (must be one of %s)", name, strings.Join(Levels, ", "))
}

func Init(level zerolog.Level) {
	// Use ConsoleWriter for human-readable, colorized output in development
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	zerolog.SetGlobalLevel(level)

	// Add a hook to include the caller's file and line number
	log.Logger = log.With().Caller().Logger()
}
