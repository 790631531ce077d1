// Package api maps the bridge's HTTP surfaces onto the core components:
// the write-oriented action API and the JSON-RPC tool-call API. Handlers
// translate core results into protocol envelopes and never leak panics.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"discobridge/pkg/delivery"
	"discobridge/pkg/logger"
	"discobridge/pkg/models"
	"discobridge/pkg/platform"
	"discobridge/pkg/search"
	"discobridge/pkg/store"
	"discobridge/pkg/utils"
)

// Deps carries the components the handlers operate on.
type Deps struct {
	Store    *store.Store
	Search   *search.Engine
	Delivery *delivery.Engine
	Client   platform.Client
	// Secret enables X-Signature verification on the action API.
	Secret  string
	RPS     float64
	Burst   int
	Version string
}

type handlers struct {
	d Deps
}

// Register mounts the action and tool-call endpoints on r.
func Register(r *mux.Router, d Deps) {
	h := &handlers{d: d}
	pool := newLimiterPool(d.RPS, d.Burst)

	r.HandleFunc("/send_message", withRateLimit(pool, withSignature(d.Secret, h.sendMessage))).Methods(http.MethodPost)
	r.HandleFunc("/reply_message", withRateLimit(pool, withSignature(d.Secret, h.replyMessage))).Methods(http.MethodPost)
	r.HandleFunc("/get_sent_messages", h.getSentMessages).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/mcp", h.mcpPost).Methods(http.MethodPost)
	r.HandleFunc("/mcp", h.mcpGet).Methods(http.MethodGet)
}

type sendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	RepliedTo string `json:"replied_to,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID string `json:"channel_id"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ChannelID == "" || req.Content == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing required fields: channel_id and content")
		return
	}
	sent, err := h.d.Delivery.Send(r.Context(), req.ChannelID, req.Content)
	writeDeliveryResult(w, sent, "", err)
}

func (h *handlers) replyMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID string `json:"channel_id"`
		MessageID string `json:"message_id"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ChannelID == "" || req.MessageID == "" || req.Content == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing required fields: channel_id, message_id and content")
		return
	}
	sent, err := h.d.Delivery.Reply(r.Context(), req.ChannelID, req.MessageID, req.Content)
	writeDeliveryResult(w, sent, req.MessageID, err)
}

// writeDeliveryResult maps delivery outcomes onto the action API shape. A
// dispatch timeout is a request-level failure and gets its own status so
// callers can tell it apart from a delivery failure.
func writeDeliveryResult(w http.ResponseWriter, sent models.SentMessage, repliedTo string, err error) {
	if err == nil {
		_ = utils.JSONWrite(w, http.StatusOK, sendResult{Success: true, MessageID: sent.ID, RepliedTo: repliedTo, URL: sent.URL})
		return
	}
	status := http.StatusInternalServerError
	if errors.Is(err, delivery.ErrDispatchTimeout) {
		status = http.StatusGatewayTimeout
	}
	logger.Warn("delivery_failed", "replied_to", repliedTo, "error", err)
	_ = utils.JSONWrite(w, status, sendResult{Success: false, Error: err.Error()})
}

func (h *handlers) getSentMessages(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	msgs := h.d.Store.SentMessages()
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		filtered := msgs[:0]
		for _, m := range msgs {
			if m.Timestamp.After(since) {
				filtered = append(filtered, m)
			}
		}
		msgs = filtered
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"messages":     msgs,
		"count":        len(msgs),
		"total_logged": h.d.Store.SentCount(),
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"bot_ready":        h.d.Client != nil && h.d.Client.Ready(),
		"messages_cached":  h.d.Store.Size(),
		"messages_logged":  h.d.Store.SentCount(),
		"mentions_tracked": h.d.Store.MentionCount(),
	})
}
