package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay.
type Config struct {
	Port     string
	Env      string
	LogLevel string
	RedisURL string

	// Bus and debounce
	TopicPrefix    string
	IdleThreshold  time.Duration // quiet period before a channel is flushed
	ReceiveTimeout time.Duration // bounded wait on an idle subscription
	ScanInterval   time.Duration // minimum spacing between flush scans

	// Chat platform
	DiscordToken   string
	DiscordGuildID string

	// Images
	ImageRoot           string
	CompositeUnitWidth  int
	CompositeUnitHeight int
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// It panics on malformed values and, in production, on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RedisURL:            os.Getenv("REDIS_URL"),
		TopicPrefix:         getEnv("TOPIC_PREFIX", "gamelog"),
		IdleThreshold:       getDuration("IDLE_THRESHOLD", 20*time.Second),
		ReceiveTimeout:      getDuration("RECEIVE_TIMEOUT", 30*time.Second),
		ScanInterval:        getDuration("SCAN_INTERVAL", time.Second),
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID:      os.Getenv("DISCORD_GUILD_ID"),
		ImageRoot:           getEnv("IMAGE_ROOT", "."),
		CompositeUnitWidth:  getInt("COMPOSITE_UNIT_WIDTH", 300),
		CompositeUnitHeight: getInt("COMPOSITE_UNIT_HEIGHT", 420),
	}

	// In production, require the bus and the chat platform
	if cfg.Env == "production" {
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.DiscordToken == "" {
			panic("DISCORD_TOKEN is required in production")
		}
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		panic(fmt.Sprintf("%s must be a positive duration, got %q", key, value))
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		panic(fmt.Sprintf("%s must be a positive integer, got %q", key, value))
	}
	return n
}
