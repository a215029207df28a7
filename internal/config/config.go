package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DevJWTSecret is the placeholder signing secret used when none is configured.
const DevJWTSecret = "change-me"

type Config struct {
	HTTPAddr          string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	RedisConnString   string        `yaml:"redis-connstring" env:"REDIS_CONNSTRING"`
	SQLitePath        string        `yaml:"sqlite-path" env:"SQLITE_PATH" env-default:"./master.db"`
	JWTSecret         string        `yaml:"jwt-secret" env:"JWT_SECRET" env-default:"change-me"`
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	OTELEndpoint      string        `yaml:"otel-endpoint" env:"OTEL_ENDPOINT"`
	BotDelay          time.Duration `yaml:"bot-delay" env:"BOT_DELAY" env-default:"500ms"`
	DefaultRoundLimit int           `yaml:"default-round-limit" env:"DEFAULT_ROUND_LIMIT" env-default:"10"`
	SessionTTL        time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"24h"`
}

// Load reads the YAML file at path when it exists, then applies the
// environment on top. Without a file only the environment and defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("unable to load config file: %w", err)
			}
			return cfg, cfg.validate()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to stat config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("unable to read environment: %w", err)
	}
	return cfg, cfg.validate()
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// InsecureJWTSecret reports whether tokens are signed with the placeholder
// secret, which anyone can read here.
func (c *Config) InsecureJWTSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == DevJWTSecret
}

func (c *Config) validate() error {
	if c.DefaultRoundLimit < 1 {
		return fmt.Errorf("default round limit must be at least 1, got %d", c.DefaultRoundLimit)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}
