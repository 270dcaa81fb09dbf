// Package config loads service configuration from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const envPrefix = "FORMVAL_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config captures every FORMVAL_* setting.
type Config struct {
	Addr             string `validate:"required"`
	FormsDir         string `validate:"required"`
	Store            string `validate:"oneof=memory sqlite mongo"`
	SQLiteDSN        string `validate:"required_if=Store sqlite"`
	MongoURI         string `validate:"required_if=Store mongo"`
	MongoDatabase    string `validate:"required_if=Store mongo"`
	RedisAddr        string
	RedisTTL         time.Duration `validate:"gte=0"`
	JWTSecret        string
	LogLevel         string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat        string `validate:"oneof=console json"`
	AggregateAnswers bool
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		Addr:          ":8080",
		FormsDir:      "forms",
		Store:         StoreMemory,
		SQLiteDSN:     "formval.db",
		MongoDatabase: "formval",
		RedisTTL:      10 * time.Minute,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load reads envFiles (".env" when none are given) into the process
// environment without overriding variables that are already set, then builds
// and validates the configuration. Missing env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from lookup, which follows the
// os.LookupEnv contract.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	get := func(name string) (string, bool) {
		value, ok := lookup(envPrefix + name)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get("ADDR"); ok {
		cfg.Addr = v
	}
	if v, ok := get("FORMS"); ok {
		cfg.FormsDir = v
	}
	if v, ok := get("STORE"); ok {
		cfg.Store = strings.ToLower(v)
	}
	if v, ok := get("SQLITE_DSN"); ok {
		cfg.SQLiteDSN = v
	}
	if v, ok := get("MONGO_URI"); ok {
		cfg.MongoURI = v
	}
	if v, ok := get("MONGO_DATABASE"); ok {
		cfg.MongoDatabase = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := get("REDIS_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %sREDIS_TTL: %w", envPrefix, err)
		}
		cfg.RedisTTL = ttl
	}
	if v, ok := get("JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v, ok := get("AGGREGATE_ANSWERS"); ok {
		aggregate, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %sAGGREGATE_ANSWERS: %w", envPrefix, err)
		}
		cfg.AggregateAnswers = aggregate
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration with its struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid configuration: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
