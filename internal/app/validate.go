package app

import (
	"fmt"

	"github.com/adhocore/gronx"

	"discobridge/pkg/config"
)

// validateConfig fails fast on configuration the server cannot run with.
func validateConfig(cfg *config.Config) error {
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token is required (discord.token or DISCOBRIDGE_DISCORD_TOKEN)")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Security.RateLimit.RPS < 0 || cfg.Security.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must be non-negative")
	}
	if cfg.Cache.MaxMessages < 0 || cfg.Cache.SentLog < 0 || cfg.Cache.MentionLog < 0 {
		return fmt.Errorf("cache sizes must be non-negative")
	}
	if cfg.Refresh.Enabled && !gronx.New().IsValid(cfg.RefreshCron()) {
		return fmt.Errorf("invalid refresh cron expression: %s", cfg.RefreshCron())
	}
	if cfg.Security.WebhookSecret == "" {
		fmt.Println("WARNING: no webhook secret configured; X-Signature verification is disabled")
	}
	return nil
}
