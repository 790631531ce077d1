// Package platform defines the capability surface the bridge needs from the
// chat platform. The core packages depend only on these interfaces; the
// discord subpackage provides the real implementation.
package platform

import (
	"context"
	"errors"

	"discobridge/pkg/models"
)

// Typed failures surfaced by Client implementations. Callers classify with
// errors.Is; anything else is treated as transient.
var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("forbidden")
)

// ChannelInfo is the minimal channel metadata the bridge cares about.
type ChannelInfo struct {
	ID      string
	GuildID string
}

// MessageEvent is one new-message observation from the live event stream.
type MessageEvent struct {
	Message     models.Message
	AuthorIsBot bool
	MentionsBot bool
}

// EventHandler consumes live message events in delivery order.
type EventHandler func(MessageEvent)

// Client exposes the platform operations the bridge performs. Reads used by
// thread context and classification are best-effort at the call sites; the
// implementations themselves report real errors.
type Client interface {
	// Channel resolves a channel by id, from a local cache when possible.
	// Returns ErrChannelNotFound when the remote lookup also fails.
	Channel(ctx context.Context, channelID string) (ChannelInfo, error)
	// ChannelMessages returns up to limit recent messages in chronological
	// order, oldest first.
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error)
	// FetchMessage retrieves one message by id within a channel. Returns
	// ErrMessageNotFound when the platform does not know the id.
	FetchMessage(ctx context.Context, channelID, messageID string) (models.Message, error)
	// SendMessage posts content to a channel and returns the created message.
	SendMessage(ctx context.Context, channelID, content string) (models.Message, error)
	// SendReply posts content as a reply to messageID.
	SendReply(ctx context.Context, channelID, messageID, content string) (models.Message, error)
	// BotUserID returns the connected bot account id, empty until ready.
	BotUserID() string
	// Ready reports whether the live session is connected.
	Ready() bool
}

// MessageURL builds the canonical deep-link URL for a message. An empty
// guild id means a direct message and maps to the "@me" segment.
func MessageURL(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}
