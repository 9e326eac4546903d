package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env and .env.local from dir and the working directory.
// Existing process environment variables are not overwritten; missing files are skipped.
func loadEnvFiles(dir string) {
	seen := make(map[string]bool)
	for _, base := range []string{dir, "."} {
		for _, name := range []string{".env", ".env.local"} {
			path := filepath.Clean(filepath.Join(base, name))
			if seen[path] {
				continue
			}
			seen[path] = true
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				slog.Warn("Failed to load env file", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			slog.Debug("Loaded environment variables", slog.String("path", path))
		}
	}
}
