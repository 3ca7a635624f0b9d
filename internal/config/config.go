package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// StorageConfig selects the settings backend holding the alarms.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// HTTPConfig configures the companion API; an empty Addr disables it.
type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

// Load reads configuration from path, or from config.yaml in the usual
// locations when path is empty. A missing file is not an error: defaults and
// DESPERTADOR_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("DESPERTADOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/despertador")
		v.AddConfigPath("/etc/despertador")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "despertador.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("http.addr", "")
	v.SetDefault("http.allowed_origins", []string{"*"})
}

// Validate validates the configuration values
func Validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case DriverSQLite, DriverBolt:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path cannot be empty for driver %s", cfg.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be one of: %v, got %q",
			[]string{DriverSQLite, DriverBolt, DriverMemory}, cfg.Storage.Driver)
	}

	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Interval > time.Minute {
		// Longer intervals would skip whole minutes and miss alarms.
		return fmt.Errorf("scheduler.interval must be at most 1m, got %s", cfg.Scheduler.Interval)
	}
	return nil
}
