package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BotToken       string
	AdminID        int64
	Debug          bool
	HTTPPort       string
	UseMemoryStore bool
	Database       DatabaseConfig
	Telegram       TelegramConfig
	Jobs           JobsConfig
	WatchLabels    []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// TelegramConfig holds secondary account client settings
type TelegramConfig struct {
	AppID        int
	AppHash      string
	LoginTimeout time.Duration
}

// JobsConfig holds background job tuning
type JobsConfig struct {
	Delay          time.Duration
	PollInterval   time.Duration
	FloodMargin    time.Duration
	ScrapeMaxLimit int
	HistoryDepth   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:       os.Getenv("BOT_TOKEN"),
		Debug:          os.Getenv("DEBUG") == "true",
		HTTPPort:       getEnv("PORT", "3000"),
		UseMemoryStore: os.Getenv("USE_MEMORY_STORE") == "true",
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "reydbot"),
			User:     getEnv("DB_USER", "reydbot"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		Telegram: TelegramConfig{
			AppHash: os.Getenv("API_HASH"),
		},
		WatchLabels: getList("WATCH_LABELS", []string{"💎", "olish", "claim"}),
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	adminID := os.Getenv("ADMIN_ID")
	if adminID == "" {
		return nil, fmt.Errorf("ADMIN_ID is required")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(adminID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_ID: %w", err)
	}
	cfg.AdminID = id

	appID := os.Getenv("API_ID")
	if appID == "" {
		return nil, fmt.Errorf("API_ID is required")
	}
	cfg.Telegram.AppID, err = strconv.Atoi(strings.TrimSpace(appID))
	if err != nil {
		return nil, fmt.Errorf("invalid API_ID: %w", err)
	}
	if cfg.Telegram.AppHash == "" {
		return nil, fmt.Errorf("API_HASH is required")
	}

	if !cfg.UseMemoryStore && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Telegram.LoginTimeout, err = getDuration("LOGIN_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.Jobs.Delay, err = getDuration("JOB_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.Jobs.PollInterval, err = getDuration("JOB_POLL_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Jobs.FloodMargin, err = getDuration("FLOOD_MARGIN", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.Jobs.ScrapeMaxLimit, err = getInt("SCRAPE_MAX_LIMIT", 5000); err != nil {
		return nil, err
	}
	if cfg.Jobs.HistoryDepth, err = getInt("SCRAPE_HISTORY_DEPTH", 3000); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

// getList splits a comma-separated variable, dropping empty items
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
