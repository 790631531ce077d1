package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	Config string
	Set    map[string]bool
}

// ParseFlags parses command-line flags.
func ParseFlags() Flags {
	addrPtr := flag.String("addr", ":3000", "HTTP listen address")
	cfgPtr := flag.String("config", "./discobridge.yaml", "Path to config file")
	flag.Parse()
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return Flags{Addr: *addrPtr, Config: *cfgPtr, Set: set}
}

// ResolveConfigPath prefers an explicitly set flag, then the env var, then
// the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := os.Getenv("DISCOBRIDGE_CONFIG"); v != "" {
		return v
	}
	return flagVal
}

// applyEnv overlays DISCOBRIDGE_* environment variables onto cfg and
// reports whether any were present.
func applyEnv(cfg *Config) bool {
	used := false

	if v := os.Getenv("DISCOBRIDGE_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		}
	}
	if v := os.Getenv("DISCOBRIDGE_PORT"); v != "" {
		used = true
		if pi, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = pi
		}
	}
	if v := os.Getenv("DISCOBRIDGE_DISCORD_TOKEN"); v != "" {
		used = true
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCOBRIDGE_COMMAND_PREFIX"); v != "" {
		used = true
		cfg.Discord.CommandPrefix = v
	}
	if v := os.Getenv("DISCOBRIDGE_MONITORED_CHANNELS"); v != "" {
		used = true
		cfg.Discord.MonitoredChannels = splitList(v)
	}
	if v := os.Getenv("DISCOBRIDGE_IGNORE_BOTS"); v != "" {
		used = true
		b := parseBool(v)
		cfg.Discord.IgnoreBots = &b
	}
	if v := os.Getenv("DISCOBRIDGE_WEBHOOK_SECRET"); v != "" {
		used = true
		cfg.Security.WebhookSecret = v
	}
	if v := os.Getenv("DISCOBRIDGE_CACHE_MAX_MESSAGES"); v != "" {
		used = true
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxMessages = n
		}
	}
	if v := os.Getenv("DISCOBRIDGE_REFRESH_CRON"); v != "" {
		used = true
		cfg.Refresh.Enabled = true
		cfg.Refresh.Cron = v
	}
	if v := os.Getenv("DISCOBRIDGE_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	return used
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
