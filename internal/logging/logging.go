// Package logging holds the process-wide logger. Everything logs through
// logging.L so that file output and level changes apply globally.
package logging

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// L is the package level logger used across the codebase
	L zerolog.Logger

	logFile *os.File
)

func init() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	L = zerolog.New(consoleWriter).With().Timestamp().Logger()
}

// SetLevel parses and applies a level string from the config ("trace",
// "debug", "info", ...). Unknown values keep the current level.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		L.Warn().Str("level", level).Msg("unknown log level, keeping current")
		return
	}
	L = L.Level(lvl)
}

// SetLogOutput adds a log file next to the console writer. The file is
// appended to across runs.
func SetLogOutput(dir, filename string) error {
	file, err := os.OpenFile(path.Join(dir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = file

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	multi := io.MultiWriter(consoleWriter, file)
	L = zerolog.New(multi).With().Timestamp().Logger().Level(L.GetLevel())

	return nil
}

// Close releases the log file if one was opened.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
