// Package config loads runtime settings from flags, the environment and an
// optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds every setting cmd/roomlist wires.
type Config struct {
	Port            string
	DatabasePath    string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	LogLevel    string
	LogFormat   string
	LogColor    bool
	FluentHost  string
	FluentPort  int
	FluentTag   string
	FluentLevel string

	// RedisAddr enables the discovery cache when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// WebhookURL enables notification delivery; without it jobs are only logged.
	WebhookURL    string
	WebhookSecret string

	ImageStoreURL   string
	ImageStoreToken string
}

// Load parses args (without the program name), reads the env file named by
// --env-file if it exists, then resolves every setting.
func Load(args []string) (Config, error) {
	fset := pflag.NewFlagSet("roomlist", pflag.ContinueOnError)
	envFile := fset.String("env-file", ".env", "dotenv file to load if present")
	port := fset.StringP("port", "p", "", "HTTP listen port (PORT)")
	dbPath := fset.String("db", "", "SQLite database path (DATABASE_PATH)")
	logLevel := fset.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	logFormat := fset.String("log-format", "", "text or json (LOG_FORMAT)")
	redisAddr := fset.String("redis-addr", "", "Redis address for the discovery cache (REDIS_ADDR)")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", *envFile, err)
	}

	var errs []error
	cfg := Config{
		Port:            envOrDefault("PORT", "8080"),
		DatabasePath:    envOrDefault("DATABASE_PATH", "roomlist.db"),
		ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		AllowedOrigins:  listEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
		LogColor:    boolEnv("LOG_COLOR", true, &errs),
		FluentHost:  os.Getenv("FLUENT_HOST"),
		FluentPort:  intEnv("FLUENT_PORT", 24224, &errs),
		FluentTag:   envOrDefault("FLUENT_TAG_PREFIX", "roomlist"),
		FluentLevel: envOrDefault("FLUENT_LEVEL", "info"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intEnv("REDIS_DB", 0, &errs),
		CacheTTL:      durationEnv("CACHE_TTL", 30*time.Second, &errs),

		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		ImageStoreURL:   os.Getenv("IMAGE_STORE_URL"),
		ImageStoreToken: os.Getenv("IMAGE_STORE_TOKEN"),
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	override(fset, "port", &cfg.Port, *port)
	override(fset, "db", &cfg.DatabasePath, *dbPath)
	override(fset, "log-level", &cfg.LogLevel, *logLevel)
	override(fset, "log-format", &cfg.LogFormat, *logFormat)
	override(fset, "redis-addr", &cfg.RedisAddr, *redisAddr)
	return cfg, nil
}

func override(fset *pflag.FlagSet, name string, dst *string, v string) {
	if fset.Changed(name) {
		*dst = v
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnv(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func boolEnv(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func durationEnv(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
