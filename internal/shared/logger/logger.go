package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New initializes the application's base zerolog.Logger. 'devMode'
// switches to human-readable console output; production gets JSON.
// Components derive their own sub-loggers from this one.
func New(devMode bool) zerolog.Logger {
	if devMode {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		return zerolog.New(consoleWriter).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
