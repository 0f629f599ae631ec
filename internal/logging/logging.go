// Package logging builds the leveled console logger shared by the client,
// the cache and the CLI.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const prefix = "tada"

// New returns a text logger writing to w at the given level name
// ("debug", "info", "warn", "error"). An empty level means "warn".
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       log.TextFormatter,
		ReportTimestamp: lvl == log.DebugLevel,
		Prefix:          prefix,
	}), nil
}

// ParseLevel is log.ParseLevel with "warn" as the default.
func ParseLevel(level string) (log.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return log.WarnLevel, nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("log level %q: %w", level, err)
	}
	return lvl, nil
}
