// Package delivery sends and replies to messages through the platform
// client with bounded retries, and funnels every write through a single
// worker that owns platform access.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discobridge/pkg/logger"
	"discobridge/pkg/models"
	"discobridge/pkg/platform"
	"discobridge/pkg/store"
)

// Retry defaults: 3 attempts total with linear backoff (1, 2 units of delay
// before attempts 2 and 3).
const (
	DefaultMaxAttempts = 3
	DefaultBackoffUnit = time.Second
)

// MaxRetriesError reports that all delivery attempts failed. It carries the
// last underlying error and the attempt count.
type MaxRetriesError struct {
	Attempts int
	Last     error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Last)
}

func (e *MaxRetriesError) Unwrap() error { return e.Last }

// Options tunes an Engine. Zero values fall back to the defaults above.
type Options struct {
	MaxAttempts int
	BackoffUnit time.Duration
	// AuthorLabel is recorded as the author of sent-log entries.
	AuthorLabel string
}

// Engine performs sends and replies. The public Send/Reply methods submit
// work to the dispatcher and block on the result; the retry loop itself
// runs on the platform worker, so retries of one request are naturally
// serialized while distinct requests queue behind each other.
type Engine struct {
	client platform.Client
	store  *store.Store
	disp   *Dispatcher
	opts   Options

	// sleep is swapped out by tests to avoid real backoff delays.
	sleep func(time.Duration)
}

// NewEngine creates a delivery Engine using disp for cross-context
// submission.
func NewEngine(client platform.Client, st *store.Store, disp *Dispatcher, opts Options) *Engine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = DefaultBackoffUnit
	}
	if opts.AuthorLabel == "" {
		opts.AuthorLabel = "discobridge"
	}
	return &Engine{client: client, store: st, disp: disp, opts: opts, sleep: time.Sleep}
}

// Send delivers content to a channel.
func (e *Engine) Send(ctx context.Context, channelID, content string) (models.SentMessage, error) {
	return e.disp.Submit(ctx, func() (models.SentMessage, error) {
		return e.deliver(channelID, "", content)
	})
}

// Reply delivers content as a reply to messageID in channelID.
func (e *Engine) Reply(ctx context.Context, channelID, messageID, content string) (models.SentMessage, error) {
	return e.disp.Submit(ctx, func() (models.SentMessage, error) {
		return e.deliver(channelID, messageID, content)
	})
}

// deliver runs on the platform worker. It deliberately does not inherit the
// HTTP request context: once dispatched, the delivery runs to completion
// and is recorded even if the waiter has given up.
func (e *Engine) deliver(channelID, replyTo, content string) (models.SentMessage, error) {
	ctx := context.Background()

	ch, err := e.client.Channel(ctx, channelID)
	if err != nil {
		metricDeliveries.WithLabelValues("channel_not_found").Inc()
		return models.SentMessage{}, err
	}
	if replyTo != "" {
		if _, err := e.client.FetchMessage(ctx, channelID, replyTo); err != nil {
			metricDeliveries.WithLabelValues("message_not_found").Inc()
			return models.SentMessage{}, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		var msg models.Message
		if replyTo != "" {
			msg, err = e.client.SendReply(ctx, channelID, replyTo, content)
		} else {
			msg, err = e.client.SendMessage(ctx, channelID, content)
		}
		if err == nil {
			sent := models.SentMessage{
				ID:        msg.ID,
				ChannelID: channelID,
				Content:   content,
				Timestamp: time.Now().UTC(),
				Author:    e.opts.AuthorLabel,
				ReplyTo:   replyTo,
				URL:       platform.MessageURL(ch.GuildID, channelID, msg.ID),
			}
			e.store.AppendSent(sent)
			metricDeliveries.WithLabelValues("ok").Inc()
			return sent, nil
		}
		if errors.Is(err, platform.ErrForbidden) {
			// permission failures are terminal, never retried
			metricDeliveries.WithLabelValues("forbidden").Inc()
			return models.SentMessage{}, err
		}
		lastErr = err
		if attempt < e.opts.MaxAttempts {
			delay := time.Duration(attempt) * e.opts.BackoffUnit
			logger.Warn("delivery_retry", "channel", channelID, "attempt", attempt, "delay", delay.String(), "error", err)
			e.sleep(delay)
		}
	}
	metricDeliveries.WithLabelValues("max_retries").Inc()
	return models.SentMessage{}, &MaxRetriesError{Attempts: e.opts.MaxAttempts, Last: lastErr}
}
