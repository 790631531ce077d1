package models

import "time"

// Author identifies the writer of a message.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Attachment is a reference to a file attached to a message.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Reaction is an aggregated emoji reaction on a message.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Message is the canonical cached record for a platform message. Records are
// immutable once stored; re-observing the same id (e.g. after a reaction
// update) replaces the whole record, last write wins.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Author    Author `json:"author"`
	ChannelID string `json:"channel_id"`
	// GuildID is empty for direct messages.
	GuildID     string       `json:"guild_id,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	// ReplyTo holds the id of the message this one replies to, if any.
	ReplyTo string `json:"reply_to,omitempty"`

	IsDM         bool   `json:"is_dm,omitempty"`
	IsReply      bool   `json:"is_reply,omitempty"`
	RepliedToBot bool   `json:"replied_to_bot,omitempty"`
	ReplyPreview string `json:"reply_preview,omitempty"`
}
