package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog sets the default slog logger, verbose enables debug level logs
// along with source locations.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))
}
