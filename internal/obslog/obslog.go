// Package obslog configures the process-wide slog logger. It is the only
// package in this module allowed to call slog.SetDefault.
package obslog

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var initOnce sync.Once

// Init configures slog based on the LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error. Defaults to info.
func Init() {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if raw, ok := os.LookupEnv("LOG_LEVEL"); ok {
			switch strings.ToLower(raw) {
			case "debug":
				level = slog.LevelDebug
			case "info":
				level = slog.LevelInfo
			case "warn", "warning":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	})
}
