package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sensor-fusion-go/internal/config"
)

// errorOnlyWriter forwards records at error level and above, dropping the rest
type errorOnlyWriter struct {
	out io.Writer
}

func (w errorOnlyWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w errorOnlyWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.out.Write(p)
}

// OpenErrorLog opens (creating if needed) the append-only error log file
func OpenErrorLog(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log %s: %w", path, err)
	}
	return f, nil
}

// NewWriter builds the process log writer: human readable console output plus
// timestamped, severity-tagged error lines in errorLog. Extra writers (Logdy)
// receive every record.
func NewWriter(console io.Writer, errorLog io.Writer, extra ...io.Writer) zerolog.LevelWriter {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
	}
	if errorLog != nil {
		writers = append(writers, errorOnlyWriter{
			out: zerolog.ConsoleWriter{Out: errorLog, NoColor: true, TimeFormat: time.RFC3339},
		})
	}
	writers = append(writers, extra...)
	return zerolog.MultiLevelWriter(writers...)
}

// Setup configures the global logger for a binary. The returned closer
// releases the error log file.
func Setup(cfg *config.Config) (io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, levelErr := zerolog.ParseLevel(cfg.LogLevel)
	if levelErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	errorLog, err := OpenErrorLog(cfg.ErrorLogPath)
	if err != nil {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil, err
	}

	var extra []io.Writer
	if cfg.LogdyEnabled {
		w, err := StartLogdy(cfg.LogdyHost, cfg.LogdyPort)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy UI unavailable, continuing without it")
		} else {
			extra = append(extra, w)
		}
	}

	log.Logger = zerolog.New(NewWriter(os.Stderr, errorLog, extra...)).With().Timestamp().Logger()
	if levelErr != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
	}

	return errorLog, nil
}
