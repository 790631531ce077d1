// Package config loads the bridge configuration from a YAML file merged
// with DISCOBRIDGE_* environment variables. Env values win over the file;
// flags win over both for the values they cover.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"server"`
	Discord struct {
		Token             string   `yaml:"token"`
		CommandPrefix     string   `yaml:"command_prefix"`
		MonitoredChannels []string `yaml:"monitored_channels"`
		// IgnoreBots defaults to true when unset.
		IgnoreBots *bool `yaml:"ignore_bots"`
	} `yaml:"discord"`
	Security struct {
		WebhookSecret string `yaml:"webhook_secret"`
		RateLimit     struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Cache struct {
		MaxMessages   int  `yaml:"max_messages"`
		SentLog       int  `yaml:"sent_log"`
		MentionLog    int  `yaml:"mention_log"`
		SearchSentLog bool `yaml:"search_sent_log"`
	} `yaml:"cache"`
	Delivery struct {
		DispatchTimeout string `yaml:"dispatch_timeout"`
		MaxAttempts     int    `yaml:"max_attempts"`
		BackoffUnit     string `yaml:"backoff_unit"`
		QueueCapacity   int    `yaml:"queue_capacity"`
		AuthorLabel     string `yaml:"author_label"`
	} `yaml:"delivery"`
	Refresh struct {
		Enabled      bool   `yaml:"enabled"`
		Cron         string `yaml:"cron"`
		HistoryLimit int    `yaml:"history_limit"`
	} `yaml:"refresh"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 3000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// IgnoreBots reports the bot-ignore toggle, defaulting to on.
func (c *Config) IgnoreBots() bool {
	if c.Discord.IgnoreBots == nil {
		return true
	}
	return *c.Discord.IgnoreBots
}

// CommandPrefix returns the configured command prefix, defaulting to "!".
func (c *Config) CommandPrefix() string {
	if c.Discord.CommandPrefix == "" {
		return "!"
	}
	return c.Discord.CommandPrefix
}

// DispatchTimeout parses the configured dispatch timeout, defaulting to 10s.
func (c *Config) DispatchTimeout() time.Duration {
	return parseDuration(c.Delivery.DispatchTimeout, 10*time.Second)
}

// BackoffUnit parses the configured backoff unit, defaulting to 1s.
func (c *Config) BackoffUnit() time.Duration {
	return parseDuration(c.Delivery.BackoffUnit, time.Second)
}

// RefreshCron returns the refresh schedule, defaulting to every 15 minutes.
func (c *Config) RefreshCron() string {
	if c.Refresh.Cron == "" {
		return "*/15 * * * *"
	}
	return c.Refresh.Cron
}

// HistoryLimit returns how many messages each refresh pulls per channel.
func (c *Config) HistoryLimit() int {
	if c.Refresh.HistoryLimit <= 0 {
		return 100
	}
	return c.Refresh.HistoryLimit
}

func parseDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// LoadEffective loads the config file (missing file is not an error) and
// applies env overrides. It returns the merged config plus a description of
// the sources used.
func LoadEffective(path string) (*Config, string, error) {
	cfg := &Config{}
	source := "defaults"
	if path != "" {
		loaded, err := Load(path)
		if err == nil {
			cfg = loaded
			source = "config"
		} else if !os.IsNotExist(err) {
			return nil, "", err
		}
	}
	if applyEnv(cfg) {
		if source == "config" {
			source = "config+env"
		} else {
			source = "env"
		}
	}
	return cfg, source, nil
}
