package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Source server (watched state is read from here)
	SourceURL    string
	SourceAPIKey string

	// Destination server (watched state is written here)
	DestURL       string
	DestAPIKey    string
	DestAdminUser string // enumerates the full destination catalog

	// Sync
	SyncSchedule string        // cron expression; empty means run once and exit
	RetryDelay   time.Duration // fixed delay between retries of remote calls

	// Server
	ServerPort string

	// Paths
	StateFile      string // $CONFIG_DIR/last_sync.json
	ExclusionsFile string // $CONFIG_DIR/excluded_users.txt
	DatabaseFile   string // $CONFIG_DIR/watchenarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("SYNC_SCHEDULE", "")
	viper.SetDefault("RETRY_DELAY_SECONDS", 5)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "watchenarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Source server
		SourceURL:    viper.GetString("SOURCE_URL"),
		SourceAPIKey: viper.GetString("SOURCE_API_KEY"),

		// Destination server
		DestURL:       viper.GetString("DEST_URL"),
		DestAPIKey:    viper.GetString("DEST_API_KEY"),
		DestAdminUser: viper.GetString("DEST_ADMIN_USER"),

		// Sync
		SyncSchedule: viper.GetString("SYNC_SCHEDULE"),
		RetryDelay:   time.Duration(viper.GetInt("RETRY_DELAY_SECONDS")) * time.Second,

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		StateFile:      filepath.Join(configDir, "last_sync.json"),
		ExclusionsFile: filepath.Join(configDir, "excluded_users.txt"),
		DatabaseFile:   filepath.Join(configDir, "watchenarr.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.SourceURL == "" {
		return nil, fmt.Errorf("SOURCE_URL is required")
	}
	if config.SourceAPIKey == "" {
		return nil, fmt.Errorf("SOURCE_API_KEY is required")
	}
	if config.DestURL == "" {
		return nil, fmt.Errorf("DEST_URL is required")
	}
	if config.DestAPIKey == "" {
		return nil, fmt.Errorf("DEST_API_KEY is required")
	}
	if config.DestAdminUser == "" {
		return nil, fmt.Errorf("DEST_ADMIN_USER is required")
	}

	return config, nil
}
