package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string `validate:"required" env:"ADDR"`
	DBPath          string `validate:"required" env:"DB_PATH"`
	LogLevel        string `validate:"required,oneof=DEBUG INFO WARN WARNING ERROR" env:"LOG_LEVEL"`
	Intervals       []int  `validate:"required,min=1,dive,gt=0" env:"INTERVALS"`
	Timezone        string `validate:"required,timezone" env:"TIMEZONE"`
	SessionType     string `validate:"required,max=64" env:"SESSION_TYPE"`
	RetryAttempts   int    `validate:"gte=1,lte=10" env:"RETRY_ATTEMPTS"`
	RetryDelayMS    int    `validate:"gte=0,lte=60000" env:"RETRY_DELAY_MS"`
	WorkerCount     int    `validate:"gte=1,lte=64" env:"WORKER_COUNT"`
	WorkerQueueSize int    `validate:"gte=1" env:"WORKER_QUEUE_SIZE"`
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("ADDR", ":8080"),
		DBPath:          envOr("DB_PATH", "file:studyflow.db"),
		LogLevel:        strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
		Intervals:       envIntsOr("INTERVALS", []int{1, 2, 4, 7}),
		Timezone:        envOr("TIMEZONE", "UTC"),
		SessionType:     envOr("SESSION_TYPE", "study"),
		RetryAttempts:   envIntOr("RETRY_ATTEMPTS", 3),
		RetryDelayMS:    envIntOr("RETRY_DELAY_MS", 200),
		WorkerCount:     envIntOr("WORKER_COUNT", 2),
		WorkerQueueSize: envIntOr("WORKER_QUEUE_SIZE", 64),
	}
}

// Location returns the time zone used for due cutoffs and day keys.
// Call Validate first; an unknown zone falls back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RetryDelay returns RetryDelayMS as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

// envIntsOr parses a comma separated list such as "1,2,4,7".
func envIntsOr(key string, def []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Printf("invalid value for %s=%q, using default %v", key, v, def)
			return def
		}
		out = append(out, i)
	}
	return out
}
