// Package ingest consumes the live message-event stream, classifies each
// event and feeds qualifying messages into the cache and mention log.
package ingest

import (
	"context"
	"strings"

	"discobridge/pkg/logger"
	"discobridge/pkg/models"
	"discobridge/pkg/platform"
	"discobridge/pkg/store"
)

// replyPreviewChars bounds the stored preview of a replied-to message.
const replyPreviewChars = 100

// Options configures a Pipeline.
type Options struct {
	// CommandPrefix marks messages reserved for command handling; they are
	// never cached. Empty disables the check.
	CommandPrefix string
	// IgnoreBots drops messages authored by other bots.
	IgnoreBots bool
	// MonitoredChannels is the allow-list of channel ids cached
	// unconditionally.
	MonitoredChannels []string
}

// Pipeline classifies inbound events. HandleMessage is invoked from the
// platform event loop; events are processed one at a time in delivery
// order, and each call performs at most one best-effort platform read.
type Pipeline struct {
	store     *store.Store
	client    platform.Client
	monitored map[string]struct{}
	opts      Options
}

// New creates a Pipeline.
func New(st *store.Store, client platform.Client, opts Options) *Pipeline {
	monitored := make(map[string]struct{}, len(opts.MonitoredChannels))
	for _, id := range opts.MonitoredChannels {
		if id = strings.TrimSpace(id); id != "" {
			monitored[id] = struct{}{}
		}
	}
	return &Pipeline{store: st, client: client, monitored: monitored, opts: opts}
}

// HandleMessage runs the per-event state machine: drop self, drop foreign
// bots (when configured), drop command-prefixed content; then cache the
// message if it is in a monitored channel, mentions the bot, or replies to
// the bot. Mentions and replies additionally land in the mention log.
func (p *Pipeline) HandleMessage(evt platform.MessageEvent) {
	m := evt.Message
	botID := p.client.BotUserID()

	if botID != "" && m.Author.ID == botID {
		metricEvents.WithLabelValues("self").Inc()
		return
	}
	if evt.AuthorIsBot && p.opts.IgnoreBots {
		metricEvents.WithLabelValues("bot").Inc()
		return
	}
	if p.opts.CommandPrefix != "" && strings.HasPrefix(m.Content, p.opts.CommandPrefix) {
		metricEvents.WithLabelValues("command").Inc()
		return
	}

	_, monitored := p.monitored[m.ChannelID]
	mention := evt.MentionsBot
	replyToBot := p.classifyReply(&m, botID)

	if !monitored && !mention && !replyToBot {
		metricEvents.WithLabelValues("ignored").Inc()
		return
	}

	m.RepliedToBot = replyToBot
	p.store.Upsert(m)
	metricEvents.WithLabelValues("cached").Inc()

	if mention || replyToBot {
		kind := models.MentionKindReply
		if mention {
			kind = models.MentionKindMention
		}
		p.store.AppendMention(models.MentionEntry{Message: m, Kind: kind})
		logger.Debug("mention_logged", "id", m.ID, "kind", kind, "channel", m.ChannelID)
	}
}

// classifyReply resolves the referenced message when m is a reply and
// reports whether it was authored by the bot. Resolution is best-effort:
// lookup failures degrade to false. On success the reply preview is
// attached to m.
func (p *Pipeline) classifyReply(m *models.Message, botID string) bool {
	if !m.IsReply || m.ReplyTo == "" || botID == "" {
		return false
	}
	ref, err := p.client.FetchMessage(context.Background(), m.ChannelID, m.ReplyTo)
	if err != nil {
		logger.Debug("reply_resolve_failed", "id", m.ID, "reply_to", m.ReplyTo, "error", err)
		return false
	}
	if ref.Author.ID != botID {
		return false
	}
	m.ReplyPreview = truncate(ref.Content, replyPreviewChars)
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
