package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"discobridge/pkg/delivery"
	"discobridge/pkg/models"
	"discobridge/pkg/platform"
	"discobridge/pkg/search"
	"discobridge/pkg/store"
)

type fakeClient struct {
	mu      sync.Mutex
	nextID  int
	sendErr error
	ready   bool
}

func (f *fakeClient) Channel(ctx context.Context, id string) (platform.ChannelInfo, error) {
	if id == "missing" {
		return platform.ChannelInfo{}, platform.ErrChannelNotFound
	}
	return platform.ChannelInfo{ID: id, GuildID: "g1"}, nil
}

func (f *fakeClient) ChannelMessages(ctx context.Context, id string, limit int) ([]models.Message, error) {
	return nil, nil
}

func (f *fakeClient) FetchMessage(ctx context.Context, ch, id string) (models.Message, error) {
	return models.Message{ID: id, ChannelID: ch}, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, ch, content string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return models.Message{}, f.sendErr
	}
	f.nextID++
	return models.Message{ID: fmt.Sprintf("sent-%d", f.nextID), ChannelID: ch, Content: content}, nil
}

func (f *fakeClient) SendReply(ctx context.Context, ch, id, content string) (models.Message, error) {
	return f.SendMessage(ctx, ch, content)
}

func (f *fakeClient) BotUserID() string { return "bot" }
func (f *fakeClient) Ready() bool       { return f.ready }

// newTestRouter assembles the real component stack behind the handlers.
func newTestRouter(t *testing.T, secret string, client *fakeClient) (*mux.Router, *store.Store) {
	t.Helper()
	st := store.New(store.Options{})
	disp := delivery.NewDispatcher(8, time.Second)
	stop := make(chan struct{})
	go disp.RunWorker(stop)
	t.Cleanup(func() { close(stop) })

	eng := delivery.NewEngine(client, st, disp, delivery.Options{MaxAttempts: 1})

	r := mux.NewRouter()
	Register(r, Deps{
		Store:    st,
		Search:   search.New(st, client, search.Options{}),
		Delivery: eng,
		Client:   client,
		Secret:   secret,
		RPS:      1000,
		Burst:    1000,
		Version:  "test",
	})
	return r, st
}

func postJSON(r http.Handler, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessageOK(t *testing.T) {
	r, st := newTestRouter(t, "", &fakeClient{})

	w := postJSON(r, "/send_message", `{"channel_id":"c1","content":"hello"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var res sendResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !res.Success || res.MessageID != "sent-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.URL != "https://discord.com/channels/g1/c1/sent-1" {
		t.Fatalf("unexpected url %q", res.URL)
	}
	if st.SentCount() != 1 {
		t.Fatalf("expected sent log entry")
	}
}

func TestSendMessageMissingFields(t *testing.T) {
	r, _ := newTestRouter(t, "", &fakeClient{})

	for _, body := range []string{`{}`, `{"channel_id":"c1"}`, `{"content":"x"}`, `not json`} {
		w := postJSON(r, "/send_message", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestSendMessageDeliveryFailure(t *testing.T) {
	client := &fakeClient{sendErr: fmt.Errorf("boom")}
	r, _ := newTestRouter(t, "", client)

	w := postJSON(r, "/send_message", `{"channel_id":"c1","content":"x"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var res sendResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Success {
		t.Fatalf("expected success=false")
	}
}

func TestReplyMessageOK(t *testing.T) {
	r, _ := newTestRouter(t, "", &fakeClient{})

	w := postJSON(r, "/reply_message", `{"channel_id":"c1","message_id":"m9","content":"re"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var res sendResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.RepliedTo != "m9" {
		t.Fatalf("unexpected replied_to %q", res.RepliedTo)
	}
}

func TestSignatureVerification(t *testing.T) {
	secret := "topsecret"
	r, _ := newTestRouter(t, secret, &fakeClient{})
	body := `{"channel_id":"c1","content":"signed"}`

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	good := hex.EncodeToString(mac.Sum(nil))

	w := postJSON(r, "/send_message", body, map[string]string{"X-Signature": good})
	if w.Code != http.StatusOK {
		t.Fatalf("valid signature rejected: %d %s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/send_message", body, map[string]string{"X-Signature": "deadbeef"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on bad signature, got %d", w.Code)
	}

	// absent header passes; verification only applies when the caller signs
	w = postJSON(r, "/send_message", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unsigned request should pass, got %d", w.Code)
	}
}

func TestGetSentMessages(t *testing.T) {
	r, st := newTestRouter(t, "", &fakeClient{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		st.AppendSent(models.SentMessage{
			ID:        fmt.Sprintf("s%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/get_sent_messages?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var res struct {
		Messages    []models.SentMessage `json:"messages"`
		Count       int                  `json:"count"`
		TotalLogged int                  `json:"total_logged"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if res.Count != 2 || res.TotalLogged != 5 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	// limit keeps the most recent entries
	if res.Messages[0].ID != "s3" || res.Messages[1].ID != "s4" {
		t.Fatalf("unexpected window: %v %v", res.Messages[0].ID, res.Messages[1].ID)
	}

	since := base.Add(2 * time.Hour).Format(time.RFC3339)
	req = httptest.NewRequest(http.MethodGet, "/get_sent_messages?since="+since, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Count != 2 {
		t.Fatalf("expected 2 entries after since filter, got %d", res.Count)
	}

	req = httptest.NewRequest(http.MethodGet, "/get_sent_messages?since=notatime", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad since, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r, st := newTestRouter(t, "", &fakeClient{ready: true})
	st.Upsert(models.Message{ID: "m1", Content: "x", Timestamp: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var res struct {
		Status         string `json:"status"`
		BotReady       bool   `json:"bot_ready"`
		MessagesCached int    `json:"messages_cached"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if res.Status != "healthy" || !res.BotReady || res.MessagesCached != 1 {
		t.Fatalf("unexpected health: %+v", res)
	}
}

func TestRateLimit(t *testing.T) {
	st := store.New(store.Options{})
	disp := delivery.NewDispatcher(8, time.Second)
	stop := make(chan struct{})
	go disp.RunWorker(stop)
	t.Cleanup(func() { close(stop) })
	client := &fakeClient{}

	r := mux.NewRouter()
	Register(r, Deps{
		Store:    st,
		Search:   search.New(st, client, search.Options{}),
		Delivery: delivery.NewEngine(client, st, disp, delivery.Options{MaxAttempts: 1}),
		Client:   client,
		RPS:      1,
		Burst:    2,
	})

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		w := postJSON(r, "/send_message", `{"channel_id":"c1","content":"x"}`, nil)
		codes[w.Code]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Fatalf("expected some 429s, got %v", codes)
	}
	if codes[http.StatusOK] == 0 {
		t.Fatalf("expected burst to pass, got %v", codes)
	}
}
