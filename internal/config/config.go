package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// MediaRoot is the device directory holding month-bucketed media
	// (e.g. .../nt_data/Pic). Required for scan and clean.
	MediaRoot string
	// DBDir is the working directory holding the encrypted databases and
	// their decrypted .clean.db artifacts.
	DBDir        string
	FilesDBName  string
	GroupDBName  string
	// KeyPath points at the sqlcipher key file. When empty, DiscoverKeyPath
	// is consulted at startup.
	KeyPath    string
	ArchiveDir string
	Workers    int
	LogLevel   slog.Level
	LogFormat  string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		MediaRoot:   getEnv("CHATSWEEP_MEDIA_ROOT", ""),
		DBDir:       getEnv("CHATSWEEP_DB_DIR", "./nt_db"),
		FilesDBName: getEnv("CHATSWEEP_FILES_DB", "files_in_chat.db"),
		GroupDBName: getEnv("CHATSWEEP_GROUP_DB", "group_info.db"),
		KeyPath:     getEnv("CHATSWEEP_KEY_PATH", ""),
		ArchiveDir:  getEnv("CHATSWEEP_ARCHIVE_DIR", "./archive"),
		LogFormat:   getEnv("CHATSWEEP_LOG_FORMAT", "text"),
	}

	workersStr := getEnv("CHATSWEEP_WORKERS", "1")
	workers, err := strconv.Atoi(workersStr)
	if err != nil {
		return nil, fmt.Errorf("CHATSWEEP_WORKERS must be a valid integer: %w", err)
	}
	if workers < 1 {
		return nil, fmt.Errorf("CHATSWEEP_WORKERS must be at least 1")
	}
	cfg.Workers = workers

	level, err := parseLogLevel(getEnv("CHATSWEEP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("CHATSWEEP_LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// FilesDBPath returns the path of the encrypted files database.
func (c *Config) FilesDBPath() string {
	return filepath.Join(c.DBDir, c.FilesDBName)
}

// GroupDBPath returns the path of the encrypted group database.
func (c *Config) GroupDBPath() string {
	return filepath.Join(c.DBDir, c.GroupDBName)
}

// CleanDBPath returns the decrypted artifact path for an encrypted database
// path: "<name>.db" becomes "<name>.clean.db" in the same directory.
func CleanDBPath(encPath string) string {
	base := strings.TrimSuffix(filepath.Base(encPath), ".db")
	return filepath.Join(filepath.Dir(encPath), base+".clean.db")
}

// DiscoverKeyPath finds the sqlcipher key file. The working directory is
// checked first, then the per-user config directory.
// Returns an empty string when no key file exists.
func DiscoverKeyPath() string {
	candidates := []string{"sqlcipher.key"}
	if configDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(configDir, "chatsweep", "sqlcipher.key"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid CHATSWEEP_LOG_LEVEL: %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
