package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines application configuration.
type Config struct {
	Deck    string        `yaml:"deck"`
	User    UserConfig    `yaml:"user"`
	Local   LocalConfig   `yaml:"local"`
	Durable DurableConfig `yaml:"durable"`
	Log     LogConfig     `yaml:"log"`
}

type UserConfig struct {
	// ID is the authenticated user id. Empty means guest mode.
	ID string `yaml:"id"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

type DurableConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Deck: "uppercase",
		Local: LocalConfig{
			Path: "abc-local.db",
		},
		Durable: DurableConfig{
			Driver: "postgres",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("ABC_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if deck := os.Getenv("ABC_DECK"); deck != "" {
		cfg.Deck = deck
	}
	if userID := os.Getenv("ABC_USER_ID"); userID != "" {
		cfg.User.ID = userID
	}
	if localPath := os.Getenv("ABC_LOCAL_PATH"); localPath != "" {
		cfg.Local.Path = localPath
	}
	if driver := os.Getenv("ABC_DB_DRIVER"); driver != "" {
		cfg.Durable.Driver = driver
	}
	if dsn := os.Getenv("ABC_DB_DSN"); dsn != "" {
		cfg.Durable.DSN = dsn
	}
	if level := os.Getenv("ABC_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
