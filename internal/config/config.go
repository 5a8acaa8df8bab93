package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/opera-events/internal/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "OPERA"

// Config holds all application configuration
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// ScraperConfig holds source site settings
type ScraperConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Qualifiers []string      `mapstructure:"qualifiers"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// present in the set passed to Load are ignored.
var flagKeys = map[string]string{
	"base-url":   "scraper.base_url",
	"user-agent": "scraper.user_agent",
	"timeout":    "scraper.timeout",
	"addr":       "server.addr",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load reads configuration from defaults, the optional YAML file at path,
// the environment and flags, then validates the result.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.base_url", "https://bachtrack.com")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("scraper.qualifiers", []string{"mat"})

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.Scraper.URL(); err != nil {
		return err
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper timeout must be positive, got %s", c.Scraper.Timeout)
	}
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	return nil
}

// URL parses BaseURL, which must be absolute.
func (s ScraperConfig) URL() (*url.URL, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute, got %q", s.BaseURL)
	}
	return u, nil
}
