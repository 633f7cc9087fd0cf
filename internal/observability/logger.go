package observability

import (
	"log/slog"
	"os"
)

// InitLogger installs a JSON slog handler as the process default.
func InitLogger(appEnv string) {
	level := slog.LevelInfo
	if appEnv == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
