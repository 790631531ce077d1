package models

import "time"

// Mention classification kinds.
const (
	MentionKindMention = "mention"
	MentionKindReply   = "reply"
)

// MentionEntry is a denormalized snapshot of a message that mentioned the
// bot or replied to it. The snapshot is a copy; later cache overwrites do
// not touch it.
type MentionEntry struct {
	Message Message `json:"message"`
	Kind    string  `json:"kind"`
}

// SentMessage records a message the bridge itself delivered.
type SentMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	// ReplyTo is set when the delivery was a reply.
	ReplyTo string `json:"reply_to,omitempty"`
	URL     string `json:"url"`
}
