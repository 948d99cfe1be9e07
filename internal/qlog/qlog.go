// Package qlog configures structured logging for the search engine.
// It mirrors the teacher's internal/logging package: a JSON slog handler
// writing to a rotating file, optionally mirrored to stderr.
package qlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config controls logging setup.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the rotating log file path. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the size threshold for rotation.
	MaxSizeMB int
	// MaxFiles is how many rotated files to retain.
	MaxFiles int
	// WriteToStderr also mirrors output to stderr.
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults rooted at ~/.cache/qmd/logs.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DefaultLogPath returns ~/.cache/qmd/logs/qmd.log, falling back to a
// relative path if the home directory cannot be resolved.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".qmd", "logs", "qmd.log")
	}
	return filepath.Join(home, ".cache", "qmd", "logs", "qmd.log")
}

// Setup builds a slog.Logger per cfg and returns a cleanup func that must
// be called to flush and close the underlying file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
		return slog.New(handler), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// SetupDefault installs a default logger as slog's package-level default
// and returns its cleanup function.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DefaultConfig())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// IsTerminal reports whether stderr is attached to an interactive
// terminal; hosts embedding this engine use it to decide whether to
// additionally colorize their own output, this package never does so
// itself.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
