// Package logging builds the slog loggers handed to every component.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelCritical sits above slog.LevelError so that only fatal conditions are
// reported at the CRITICAL setting.
const LevelCritical = slog.LevelError + 4

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LevelNames lists the accepted level names, most severe first.
var LevelNames = []string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG"}

// ParseLevel maps a level name (case-insensitive) to a slog level. WARN is
// accepted as an alias of WARNING.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CRITICAL":
		return LevelCritical, nil
	case "ERROR":
		return slog.LevelError, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("invalid log level %q; valid values: %s", name, strings.Join(LevelNames, ", "))
	}
}

// New returns a logger writing to w at level in the given format.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameLevels,
	}
	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q; valid values: %s, %s", format, FormatText, FormatJSON)
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func renameLevels(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case level >= LevelCritical:
		a.Value = slog.StringValue("CRITICAL")
	case level == slog.LevelWarn:
		a.Value = slog.StringValue("WARNING")
	}
	return a
}
