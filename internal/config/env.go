package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order. Variables already set are never overridden.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, name := range envFiles {
		err := godotenv.Load(name)
		switch {
		case err == nil:
			slog.Debug("Loaded environment file", slog.String("path", name))
		case errors.Is(err, fs.ErrNotExist):
		default:
			slog.Warn("Failed to load environment file", slog.String("path", name), slog.String("error", err.Error()))
		}
	}
}
