// Package store owns the in-memory message cache, its tag index and the
// bounded mention/sent logs. The cache is memory-only; nothing here touches
// disk. All state is held on an injectable Store value so tests get a fresh
// instance each time.
package store

import (
	"sync"

	"discobridge/pkg/models"
	"discobridge/pkg/tags"
)

// Default bounds. The mention and sent logs are hard-bounded rings; the
// primary cache evicts oldest-first once it reaches MaxMessages.
const (
	DefaultMaxMessages = 10000
	DefaultSentLogSize = 1000
	DefaultMentionSize = 100
)

// Options configures a Store. Zero values fall back to the defaults above.
type Options struct {
	MaxMessages int
	SentLogSize int
	MentionSize int
}

// Store is the canonical owner of cached messages. The tag index and the
// logs hold copies or id references only; they never mutate the canonical
// record. Every mutation is a short critical section so concurrent readers
// never observe a partially updated index.
type Store struct {
	mu sync.RWMutex

	msgs  map[string]models.Message
	order []string // insertion order of ids, oldest first
	index map[string][]string

	capacity int

	sent     *ring[models.SentMessage]
	mentions *ring[models.MentionEntry]
}

// New creates an empty Store with the given bounds.
func New(opts Options) *Store {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.SentLogSize <= 0 {
		opts.SentLogSize = DefaultSentLogSize
	}
	if opts.MentionSize <= 0 {
		opts.MentionSize = DefaultMentionSize
	}
	return &Store{
		msgs:     make(map[string]models.Message),
		index:    make(map[string][]string),
		capacity: opts.MaxMessages,
		sent:     newRing[models.SentMessage](opts.SentLogSize),
		mentions: newRing[models.MentionEntry](opts.MentionSize),
	}
}

// Upsert inserts or replaces the record for m.ID and updates the tag index.
// Replacing an existing record drops the id from tags the new content no
// longer carries. Inserting a new record may evict the oldest one; evicted
// ids are pruned from the index so membership stays consistent.
func (s *Store) Upsert(m models.Message) {
	newTags := tags.Extract(m.Content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.msgs[m.ID]; ok {
		for _, t := range tags.Extract(old.Content) {
			if !contains(newTags, t) {
				s.dropFromIndex(t, m.ID)
			}
		}
	} else {
		s.order = append(s.order, m.ID)
		metricUpserts.Inc()
		if len(s.order) > s.capacity {
			s.evictOldestLocked()
		}
	}

	s.msgs[m.ID] = m
	for _, t := range newTags {
		if !contains(s.index[t], m.ID) {
			s.index[t] = append(s.index[t], m.ID)
		}
	}
	metricCached.Set(float64(len(s.msgs)))
}

// evictOldestLocked removes the oldest cached message and prunes its tags.
func (s *Store) evictOldestLocked() {
	id := s.order[0]
	s.order = s.order[1:]
	if old, ok := s.msgs[id]; ok {
		for _, t := range tags.Extract(old.Content) {
			s.dropFromIndex(t, id)
		}
		delete(s.msgs, id)
	}
	metricEvictions.Inc()
}

func (s *Store) dropFromIndex(tag, id string) {
	ids := s.index[tag]
	for i, v := range ids {
		if v == id {
			s.index[tag] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.index[tag]) == 0 {
		delete(s.index, tag)
	}
}

// Get returns the cached message for id.
func (s *Store) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.msgs[id]
	return m, ok
}

// Size returns the number of cached messages.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Snapshot returns a copy of all cached messages in insertion order.
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, 0, len(s.order))
	for _, id := range s.order {
		if m, ok := s.msgs[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// TagIDs returns the ids indexed under tag, in insertion order.
func (s *Store) TagIDs(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.index[tag]...)
}

// AppendSent records a delivered message in the bounded sent log.
func (s *Store) AppendSent(m models.SentMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent.append(m)
}

// SentMessages returns a copy of the sent log, oldest first.
func (s *Store) SentMessages() []models.SentMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sent.items()
}

// SentCount returns the number of entries currently in the sent log.
func (s *Store) SentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sent.len()
}

// AppendMention records a mention/reply snapshot in the bounded mention log.
func (s *Store) AppendMention(e models.MentionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentions.append(e)
}

// Mentions returns up to limit mention entries, newest first. limit <= 0
// returns the whole log.
func (s *Store) Mentions(limit int) []models.MentionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.mentions.items()
	// reverse so the most recent mention comes first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// MentionCount returns the number of entries currently in the mention log.
func (s *Store) MentionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mentions.len()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
