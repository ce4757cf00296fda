package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Reminder      ReminderConfig      `mapstructure:"reminder"`
	Watch         WatchConfig         `mapstructure:"watch"`
	Progress      ProgressConfig      `mapstructure:"progress"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // tint, json or text
}

type NotificationsConfig struct {
	// DefaultEnabled applies until the user toggles notifications once.
	DefaultEnabled bool `mapstructure:"default_enabled"`
}

type ReminderConfig struct {
	Title string `mapstructure:"title"`
	Body  string `mapstructure:"body"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type ProgressConfig struct {
	// AllowStatusRegression lets a Finished book fall back to Reading when
	// a deleted log drops it below 100%.
	AllowStatusRegression bool `mapstructure:"allow_status_regression"`
}

type CatalogConfig struct {
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DefaultDir is where the database and config file live unless overridden.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".booknest"
	}
	return filepath.Join(homeDir, ".booknest")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(DefaultDir(), "books.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "tint")
	v.SetDefault("notifications.default_enabled", true)
	v.SetDefault("reminder.title", "Deadline Reminder")
	v.SetDefault("reminder.body", `Your book "%s" is due!`)
	v.SetDefault("watch.interval", 30*time.Second)
	v.SetDefault("progress.allow_status_regression", false)
	v.SetDefault("catalog.google_api_key", "")
	v.SetDefault("catalog.timeout", 15*time.Second)
}

// Load reads config.yaml from dir (when set), the default directory and the
// working directory, then applies BOOKNEST_* environment overrides. A
// missing file is not an error.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(DefaultDir())
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKNEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return errors.New("config: database.path must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "tint", "json", "text":
	default:
		return fmt.Errorf("config: unknown log.format %q (use tint, json or text)", c.Log.Format)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("config: watch.interval must be positive, got %s", c.Watch.Interval)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("config: catalog.timeout must be positive, got %s", c.Catalog.Timeout)
	}
	if strings.Count(c.Reminder.Body, "%s") != 1 {
		return fmt.Errorf("config: reminder.body must contain exactly one %%s for the book title")
	}
	return nil
}
