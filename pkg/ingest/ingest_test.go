package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"discobridge/pkg/models"
	"discobridge/pkg/platform"
	"discobridge/pkg/store"
)

type fakeClient struct {
	botID    string
	messages map[string]models.Message
	fetches  int
}

func (f *fakeClient) Channel(ctx context.Context, id string) (platform.ChannelInfo, error) {
	return platform.ChannelInfo{ID: id}, nil
}

func (f *fakeClient) ChannelMessages(ctx context.Context, id string, limit int) ([]models.Message, error) {
	return nil, nil
}

func (f *fakeClient) FetchMessage(ctx context.Context, ch, id string) (models.Message, error) {
	f.fetches++
	if m, ok := f.messages[id]; ok {
		return m, nil
	}
	return models.Message{}, platform.ErrMessageNotFound
}

func (f *fakeClient) SendMessage(ctx context.Context, ch, content string) (models.Message, error) {
	return models.Message{}, nil
}

func (f *fakeClient) SendReply(ctx context.Context, ch, id, content string) (models.Message, error) {
	return models.Message{}, nil
}

func (f *fakeClient) BotUserID() string { return f.botID }
func (f *fakeClient) Ready() bool       { return true }

func event(id, authorID, channelID, content string) platform.MessageEvent {
	return platform.MessageEvent{
		Message: models.Message{
			ID:        id,
			Content:   content,
			Author:    models.Author{ID: authorID, Username: "user-" + authorID},
			ChannelID: channelID,
			Timestamp: time.Now().UTC(),
		},
	}
}

func newPipeline(st *store.Store, client *fakeClient) *Pipeline {
	return New(st, client, Options{
		CommandPrefix:     "!",
		IgnoreBots:        true,
		MonitoredChannels: []string{"mon"},
	})
}

func TestOwnMessagesDropped(t *testing.T) {
	st := store.New(store.Options{})
	p := newPipeline(st, &fakeClient{botID: "bot1"})

	p.HandleMessage(event("m1", "bot1", "mon", "echo"))
	if st.Size() != 0 {
		t.Fatalf("own message must never be cached")
	}
}

func TestForeignBotsDropped(t *testing.T) {
	st := store.New(store.Options{})
	p := newPipeline(st, &fakeClient{botID: "bot1"})

	evt := event("m1", "otherbot", "mon", "beep")
	evt.AuthorIsBot = true
	p.HandleMessage(evt)
	if st.Size() != 0 {
		t.Fatalf("bot message must be dropped when ignore_bots is on")
	}
}

func TestBotsKeptWhenConfigured(t *testing.T) {
	st := store.New(store.Options{})
	p := New(st, &fakeClient{botID: "bot1"}, Options{
		IgnoreBots:        false,
		MonitoredChannels: []string{"mon"},
	})
	evt := event("m1", "otherbot", "mon", "beep")
	evt.AuthorIsBot = true
	p.HandleMessage(evt)
	if st.Size() != 1 {
		t.Fatalf("bot message should be cached when ignore_bots is off")
	}
}

func TestCommandPrefixDropped(t *testing.T) {
	st := store.New(store.Options{})
	p := newPipeline(st, &fakeClient{botID: "bot1"})

	// commands are dropped even when they would otherwise qualify
	evt := event("m1", "u1", "mon", "!status now")
	evt.MentionsBot = true
	p.HandleMessage(evt)
	if st.Size() != 0 {
		t.Fatalf("command message must never be cached")
	}
}

func TestMonitoredChannelCached(t *testing.T) {
	st := store.New(store.Options{})
	p := newPipeline(st, &fakeClient{botID: "bot1"})

	p.HandleMessage(event("m1", "u1", "mon", "regular chatter"))
	if _, ok := st.Get("m1"); !ok {
		t.Fatalf("monitored channel message must be cached")
	}
	if st.MentionCount() != 0 {
		t.Fatalf("plain message must not enter the mention log")
	}
}

func TestUnmonitoredIgnored(t *testing.T) {
	st := store.New(store.Options{})
	p := newPipeline(st, &fakeClient{botID: "bot1"})

	p.HandleMessage(event("m1", "u1", "elsewhere", "hi"))
	if st.Size() != 0 {
		t.Fatalf("unmonitored non-mention must be ignored")
	}
}

func TestMentionCachedAndLogged(t *testing.T) {
	st := store.New(store.Options{})
	p := newPipeline(st, &fakeClient{botID: "bot1"})

	evt := event("m1", "u1", "elsewhere", "hey bot, help")
	evt.MentionsBot = true
	p.HandleMessage(evt)

	if _, ok := st.Get("m1"); !ok {
		t.Fatalf("mention must be cached even off the monitored list")
	}
	got := st.Mentions(0)
	if len(got) != 1 || got[0].Kind != models.MentionKindMention {
		t.Fatalf("unexpected mention log: %+v", got)
	}
}

func TestReplyToBotResolved(t *testing.T) {
	st := store.New(store.Options{})
	client := &fakeClient{
		botID: "bot1",
		messages: map[string]models.Message{
			"ref1": {
				ID:      "ref1",
				Content: strings.Repeat("x", 150),
				Author:  models.Author{ID: "bot1", Username: "bridge"},
			},
		},
	}
	p := newPipeline(st, client)

	evt := event("m1", "u1", "elsewhere", "thanks!")
	evt.Message.IsReply = true
	evt.Message.ReplyTo = "ref1"
	p.HandleMessage(evt)

	cached, ok := st.Get("m1")
	if !ok {
		t.Fatalf("reply to bot must be cached")
	}
	if !cached.RepliedToBot {
		t.Fatalf("expected replied_to_bot set")
	}
	if len(cached.ReplyPreview) != 103 || !strings.HasSuffix(cached.ReplyPreview, "...") {
		t.Fatalf("expected 100-char preview with ellipsis, got %d chars", len(cached.ReplyPreview))
	}
	got := st.Mentions(0)
	if len(got) != 1 || got[0].Kind != models.MentionKindReply {
		t.Fatalf("unexpected mention log: %+v", got)
	}
}

func TestReplyResolutionFailureDegrades(t *testing.T) {
	st := store.New(store.Options{})
	client := &fakeClient{botID: "bot1"} // FetchMessage always fails
	p := newPipeline(st, client)

	evt := event("m1", "u1", "elsewhere", "thanks!")
	evt.Message.IsReply = true
	evt.Message.ReplyTo = "gone"
	p.HandleMessage(evt)

	if st.Size() != 0 {
		t.Fatalf("unresolvable reply off the monitored list must be ignored")
	}
	if client.fetches != 1 {
		t.Fatalf("expected one lookup attempt, got %d", client.fetches)
	}
}

func TestReplyToHumanNotLogged(t *testing.T) {
	st := store.New(store.Options{})
	client := &fakeClient{
		botID: "bot1",
		messages: map[string]models.Message{
			"ref1": {ID: "ref1", Content: "hi", Author: models.Author{ID: "human2"}},
		},
	}
	p := newPipeline(st, client)

	evt := event("m1", "u1", "mon", "agreed")
	evt.Message.IsReply = true
	evt.Message.ReplyTo = "ref1"
	p.HandleMessage(evt)

	cached, ok := st.Get("m1")
	if !ok {
		t.Fatalf("monitored reply must be cached")
	}
	if cached.RepliedToBot {
		t.Fatalf("reply to a human must not be flagged")
	}
	if st.MentionCount() != 0 {
		t.Fatalf("reply to a human must not enter the mention log")
	}
}

func TestMentionKindWinsOverReply(t *testing.T) {
	st := store.New(store.Options{})
	client := &fakeClient{
		botID: "bot1",
		messages: map[string]models.Message{
			"ref1": {ID: "ref1", Content: "orig", Author: models.Author{ID: "bot1"}},
		},
	}
	p := newPipeline(st, client)

	evt := event("m1", "u1", "elsewhere", "hey @bot")
	evt.MentionsBot = true
	evt.Message.IsReply = true
	evt.Message.ReplyTo = "ref1"
	p.HandleMessage(evt)

	got := st.Mentions(0)
	if len(got) != 1 || got[0].Kind != models.MentionKindMention {
		t.Fatalf("mention kind must win, got %+v", got)
	}
}
