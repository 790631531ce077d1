// Package search implements keyword and tag search over the message cache,
// plus fetch-by-id with best-effort thread context.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"discobridge/pkg/logger"
	"discobridge/pkg/models"
	"discobridge/pkg/platform"
	"discobridge/pkg/store"
	"discobridge/pkg/tags"
)

const (
	maxResults     = 20
	titleChars     = 100
	previewChars   = 200
	contextHistory = 50
	contextRadius  = 5
)

// Summary is one search hit.
type Summary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Author    string   `json:"author"`
	Timestamp string   `json:"timestamp"`
	Tags      []string `json:"tags,omitempty"`
	Channel   string   `json:"channel"`
	Score     int      `json:"score,omitempty"`
}

// Result is the envelope returned by Search.
type Result struct {
	Results []Summary `json:"results"`
}

// ContextMessage is a condensed neighbor in a fetched message's channel.
type ContextMessage struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Preview   string `json:"preview"`
	Timestamp string `json:"timestamp"`
}

// Metadata is the detail block attached to a fetched message.
type Metadata struct {
	Author      string            `json:"author,omitempty"`
	AuthorID    string            `json:"author_id,omitempty"`
	Timestamp   string            `json:"timestamp,omitempty"`
	ChannelID   string            `json:"channel_id,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Reactions   []models.Reaction `json:"reactions,omitempty"`
	Attachments []string          `json:"attachments,omitempty"`
	// Error is "not_found" on a cache miss; the miss is a sentinel value,
	// not a failure.
	Error string `json:"error,omitempty"`
}

// Detail is the full fetch-by-id response.
type Detail struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Text          string           `json:"text"`
	URL           string           `json:"url"`
	Metadata      Metadata         `json:"metadata"`
	ThreadContext []ContextMessage `json:"thread_context,omitempty"`
}

// Options tunes an Engine.
type Options struct {
	// SearchSentLog makes keyword search score bridge-sent messages too.
	SearchSentLog bool
}

// Engine answers read queries against a Store, reaching out to the platform
// only for thread context.
type Engine struct {
	store  *store.Store
	client platform.Client
	opts   Options
}

// New creates an Engine. client may be nil; thread context is then skipped.
func New(s *store.Store, client platform.Client, opts Options) *Engine {
	return &Engine{store: s, client: client, opts: opts}
}

// Search runs tag search when query starts with '#', keyword search
// otherwise. At most 20 results.
func (e *Engine) Search(query string) Result {
	if strings.HasPrefix(query, "#") {
		metricSearches.WithLabelValues("tag").Inc()
		return Result{Results: e.searchTag(query)}
	}
	metricSearches.WithLabelValues("keyword").Inc()
	return Result{Results: e.searchKeywords(query)}
}

func (e *Engine) searchTag(query string) []Summary {
	tag := strings.ToLower(strings.TrimPrefix(query, "#"))
	out := []Summary{}
	for _, id := range e.store.TagIDs(tag) {
		if len(out) >= maxResults {
			break
		}
		if m, ok := e.store.Get(id); ok {
			out = append(out, summarize(m, 0, false))
		}
	}
	return out
}

type scored struct {
	msg   models.Message
	score int
}

func (e *Engine) searchKeywords(query string) []Summary {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return []Summary{}
	}

	candidates := e.store.Snapshot()
	if e.opts.SearchSentLog {
		for _, sm := range e.store.SentMessages() {
			candidates = append(candidates, models.Message{
				ID:        sm.ID,
				Content:   sm.Content,
				Author:    models.Author{Username: sm.Author},
				ChannelID: sm.ChannelID,
				Timestamp: sm.Timestamp,
			})
		}
	}

	var hits []scored
	for _, m := range candidates {
		content := strings.ToLower(m.Content)
		author := strings.ToLower(m.Author.Username)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				score += 2
			}
			if strings.Contains(author, kw) {
				score += 1
			}
		}
		if score > 0 {
			hits = append(hits, scored{msg: m, score: score})
		}
	}

	// score descending; equal scores break toward the newer message
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].msg.Timestamp.After(hits[j].msg.Timestamp)
	})

	out := []Summary{}
	for _, h := range hits {
		if len(out) >= maxResults {
			break
		}
		out = append(out, summarize(h.msg, h.score, true))
	}
	return out
}

// Fetch returns the full detail for id, or the not-found sentinel. Thread
// context is best-effort: platform failures degrade to no context.
func (e *Engine) Fetch(ctx context.Context, id string) Detail {
	m, ok := e.store.Get(id)
	if !ok {
		metricFetches.WithLabelValues("miss").Inc()
		return Detail{
			ID:       id,
			Title:    "Message Not Found",
			Text:     "This message is not in the cache.",
			URL:      "",
			Metadata: Metadata{Error: "not_found"},
		}
	}

	metricFetches.WithLabelValues("hit").Inc()
	attachments := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, a.URL)
	}

	return Detail{
		ID:    m.ID,
		Title: "Message from " + m.Author.Username,
		Text:  m.Content,
		URL:   platform.MessageURL(m.GuildID, m.ChannelID, m.ID),
		Metadata: Metadata{
			Author:      m.Author.Username,
			AuthorID:    m.Author.ID,
			Timestamp:   m.Timestamp.UTC().Format(time.RFC3339),
			ChannelID:   m.ChannelID,
			Tags:        tags.Extract(m.Content),
			Reactions:   m.Reactions,
			Attachments: attachments,
		},
		ThreadContext: e.threadContext(ctx, m),
	}
}

// threadContext re-fetches recent channel history and returns a window of
// up to contextRadius messages either side of the target, inclusive.
func (e *Engine) threadContext(ctx context.Context, m models.Message) []ContextMessage {
	if e.client == nil {
		return nil
	}
	history, err := e.client.ChannelMessages(ctx, m.ChannelID, contextHistory)
	if err != nil {
		logger.Debug("thread_context_fetch_failed", "channel", m.ChannelID, "error", err)
		return nil
	}
	idx := -1
	for i, h := range history {
		if h.ID == m.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	lo := idx - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := idx + contextRadius
	if hi > len(history)-1 {
		hi = len(history) - 1
	}
	out := make([]ContextMessage, 0, hi-lo+1)
	for _, h := range history[lo : hi+1] {
		out = append(out, ContextMessage{
			ID:        h.ID,
			Author:    h.Author.Username,
			Preview:   truncate(h.Content, previewChars),
			Timestamp: h.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func summarize(m models.Message, score int, withScore bool) Summary {
	s := Summary{
		ID:        m.ID,
		Title:     truncate(m.Content, titleChars),
		URL:       platform.MessageURL(m.GuildID, m.ChannelID, m.ID),
		Author:    m.Author.Username,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		Tags:      tags.Extract(m.Content),
		Channel:   m.ChannelID,
	}
	if withScore {
		s.Score = score
	}
	return s
}

// truncate cuts s to at most n runes, appending an ellipsis marker when
// anything was dropped.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
