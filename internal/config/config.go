package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the binaries read from the environment. A .env
// file is honored when present so local runs need no exported variables.
type Config struct {
	Env             string
	HTTPPort        string
	PostgresDSN     string
	RedisAddr       string
	RedisUsername   string
	RedisPassword   string
	LockTTL         time.Duration // lifetime of one Redis slot lock
	ShutdownTimeout time.Duration
	WorkerInterval  time.Duration // how often the slot worker wakes up
	SlotWindowDays  int           // forward window for slot generation
	RateLimitRPS    int           // per-IP request ceiling, 0 disables
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             envString("APP_ENV", "dev"),
		HTTPPort:        envString("HTTP_PORT", "8080"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		LockTTL:         envSeconds("LOCK_TTL", 5*time.Second),
		ShutdownTimeout: envSeconds("SHUTDOWN_TIMEOUT", 10*time.Second),
		WorkerInterval:  envSeconds("WORKER_INTERVAL", time.Minute),
		SlotWindowDays:  envInt("SLOT_WINDOW_DAYS", 28),
		RateLimitRPS:    envInt("RATE_LIMIT_RPS", 50),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, errors.New("POSTGRES_DSN is required")
	}
	if cfg.SlotWindowDays < 1 {
		return Config{}, fmt.Errorf("SLOT_WINDOW_DAYS must be >= 1, got %d", cfg.SlotWindowDays)
	}
	if err := cfg.loadRedis(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadRedis prefers a single REDIS_URL and falls back to the split
// REDIS_ADDR / REDIS_USERNAME / REDIS_PASSWORD variables.
func (c *Config) loadRedis() error {
	raw := os.Getenv("REDIS_URL")
	if raw == "" {
		c.RedisAddr = envString("REDIS_ADDR", "127.0.0.1:6379")
		c.RedisUsername = os.Getenv("REDIS_USERNAME")
		c.RedisPassword = os.Getenv("REDIS_PASSWORD")
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	c.RedisAddr = u.Host
	if u.User != nil {
		c.RedisUsername = u.User.Username()
		c.RedisPassword, _ = u.User.Password()
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envSeconds reads a duration; bare integers count as seconds.
func envSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	fmt.Fprintf(os.Stderr, "invalid duration %s=%q, using %s\n", key, v, def)
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid integer %s=%q, using %d\n", key, v, def)
		return def
	}
	return n
}
