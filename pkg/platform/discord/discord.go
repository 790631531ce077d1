// Package discord implements platform.Client on top of the discordgo
// gateway/REST session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"discobridge/pkg/logger"
	"discobridge/pkg/models"
	"discobridge/pkg/platform"
)

// Session wraps a discordgo session. REST calls are safe from any
// goroutine; gateway event handlers run on the session's event loop and are
// dispatched in delivery order.
type Session struct {
	s     *discordgo.Session
	ready atomic.Bool
	botID atomic.Value // string
}

// New creates a Session for the given bot token. Open must be called before
// events flow.
func New(token string) (*Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	sess := &Session{s: s}
	sess.botID.Store("")
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		sess.botID.Store(r.User.ID)
		sess.ready.Store(true)
		logger.Info("discord_ready", "user", r.User.Username, "id", r.User.ID)
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		sess.ready.Store(false)
		logger.Warn("discord_disconnected")
	})
	return sess, nil
}

// Open connects the gateway session.
func (d *Session) Open() error {
	if err := d.s.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close shuts the gateway session down.
func (d *Session) Close() error { return d.s.Close() }

// OnReady registers fn to run when the gateway session reports ready.
func (d *Session) OnReady(fn func()) {
	d.s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) { fn() })
}

// OnMessage registers h for live message-create events.
func (d *Session) OnMessage(h platform.EventHandler) {
	d.s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		h(platform.MessageEvent{
			Message:     convert(m.Message),
			AuthorIsBot: m.Author.Bot,
			MentionsBot: mentionsUser(m.Message, d.BotUserID()),
		})
	})
}

// BotUserID returns the connected bot account id, empty until ready.
func (d *Session) BotUserID() string {
	v, _ := d.botID.Load().(string)
	return v
}

// Ready reports whether the gateway session is connected.
func (d *Session) Ready() bool { return d.ready.Load() }

// Channel resolves a channel from gateway state first, falling back to a
// REST lookup.
func (d *Session) Channel(ctx context.Context, channelID string) (platform.ChannelInfo, error) {
	if ch, err := d.s.State.Channel(channelID); err == nil {
		return platform.ChannelInfo{ID: ch.ID, GuildID: ch.GuildID}, nil
	}
	ch, err := d.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return platform.ChannelInfo{}, fmt.Errorf("channel %s: %w", channelID, platform.ErrChannelNotFound)
		}
		return platform.ChannelInfo{}, classify(err)
	}
	return platform.ChannelInfo{ID: ch.ID, GuildID: ch.GuildID}, nil
}

// ChannelMessages returns up to limit recent messages, oldest first.
func (d *Session) ChannelMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	msgs, err := d.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrChannelNotFound)
		}
		return nil, classify(err)
	}
	// the REST API returns newest first; flip to chronological order
	out := make([]models.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, convert(msgs[i]))
	}
	return out, nil
}

// FetchMessage retrieves one message by id.
func (d *Session) FetchMessage(ctx context.Context, channelID, messageID string) (models.Message, error) {
	m, err := d.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return models.Message{}, fmt.Errorf("message %s: %w", messageID, platform.ErrMessageNotFound)
		}
		return models.Message{}, classify(err)
	}
	return convert(m), nil
}

// SendMessage posts content to a channel.
func (d *Session) SendMessage(ctx context.Context, channelID, content string) (models.Message, error) {
	m, err := d.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return models.Message{}, classify(err)
	}
	return convert(m), nil
}

// SendReply posts content as a reply to messageID.
func (d *Session) SendReply(ctx context.Context, channelID, messageID, content string) (models.Message, error) {
	ref := &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID}
	m, err := d.s.ChannelMessageSendReply(channelID, content, ref, discordgo.WithContext(ctx))
	if err != nil {
		return models.Message{}, classify(err)
	}
	return convert(m), nil
}

// classify maps discord REST failures onto the platform error taxonomy.
// Anything not recognized stays as-is and is treated as transient upstream.
func classify(err error) error {
	if isStatus(err, http.StatusForbidden) {
		return fmt.Errorf("%w: %v", platform.ErrForbidden, err)
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess, discordgo.ErrCodeCannotSendMessagesToThisUser:
			return fmt.Errorf("%w: %v", platform.ErrForbidden, err)
		}
	}
	return err
}

func isStatus(err error, code int) bool {
	var rerr *discordgo.RESTError
	return errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == code
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// convert maps a discordgo message onto the bridge's canonical record.
func convert(m *discordgo.Message) models.Message {
	out := models.Message{
		ID:        m.ID,
		Content:   m.Content,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Timestamp: m.Timestamp,
		IsDM:      m.GuildID == "",
	}
	if m.Author != nil {
		out.Author = models.Author{ID: m.Author.ID, Username: m.Author.Username}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		out.Attachments = append(out.Attachments, models.Attachment{URL: a.URL, ContentType: a.ContentType})
	}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, models.Reaction{Emoji: r.Emoji.Name, Count: r.Count})
	}
	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		out.IsReply = true
		out.ReplyTo = ref.MessageID
	}
	return out
}
