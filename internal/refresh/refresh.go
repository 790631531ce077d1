// Package refresh pulls bulk channel history into the cache: once at
// startup when the gateway reports ready, and periodically on a cron
// schedule.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"discobridge/pkg/logger"
	"discobridge/pkg/platform"
	"discobridge/pkg/store"
)

// Runner fetches recent history for the monitored channels and upserts it.
type Runner struct {
	client   platform.Client
	store    *store.Store
	channels []string
	limit    int
}

// New creates a Runner fetching up to limit messages per channel.
func New(client platform.Client, st *store.Store, channels []string, limit int) *Runner {
	if limit <= 0 {
		limit = 100
	}
	return &Runner{client: client, store: st, channels: channels, limit: limit}
}

// RunOnce refreshes every monitored channel. Per-channel failures are
// logged and skipped; the refresh keeps going.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, ch := range r.channels {
		msgs, err := r.client.ChannelMessages(ctx, ch, r.limit)
		if err != nil {
			logger.Warn("refresh_channel_failed", "channel", ch, "error", err)
			continue
		}
		for _, m := range msgs {
			r.store.Upsert(m)
		}
		logger.Info("refresh_channel_done", "channel", ch, "loaded", len(msgs))
	}
}

// Start launches the cron scheduler. Returns a cancel func, or an error if
// the cron expression is invalid.
func Start(ctx context.Context, r *Runner, cronExpr string) (context.CancelFunc, error) {
	if !gronx.New().IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid refresh cron expression: %s", cronExpr)
	}
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, r, cronExpr)
	logger.Info("refresh_scheduler_started", "cron", cronExpr, "channels", len(r.channels))
	return cancel, nil
}

// runScheduler computes the next cron tick and sleeps until then, so full
// cron syntax is honored without minute polling.
func runScheduler(ctx context.Context, r *Runner, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("refresh_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("refresh_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			r.RunOnce(ctx)
		case <-ctx.Done():
			logger.Info("refresh_scheduler_stopping")
			return
		}
	}
}
