package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"discobridge/pkg/logger"
	"discobridge/pkg/utils"
)

// protocolVersion is the tool-call protocol revision advertised to clients.
const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes used by the tool endpoint.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// toolDescriptor is one entry of the static tools/list response.
type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func schema(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

var toolDescriptors = []toolDescriptor{
	{
		Name:        "search",
		Description: "Search cached messages using keywords or a #tag",
		InputSchema: schema([]string{"query"}, map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query (keywords or #tag)"},
		}),
	},
	{
		Name:        "fetch",
		Description: "Fetch full message content and thread context by id",
		InputSchema: schema([]string{"message_id"}, map[string]any{
			"message_id": map[string]any{"type": "string", "description": "Message id"},
		}),
	},
	{
		Name:        "get_mentions",
		Description: "Return recent messages that mentioned or replied to the bot",
		InputSchema: schema(nil, map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum entries to return"},
		}),
	},
	{
		Name:        "send_message",
		Description: "Send a message to a channel",
		InputSchema: schema([]string{"channel_id", "content"}, map[string]any{
			"channel_id": map[string]any{"type": "string"},
			"content":    map[string]any{"type": "string"},
		}),
	},
	{
		Name:        "reply_message",
		Description: "Reply to a specific message in a channel",
		InputSchema: schema([]string{"channel_id", "message_id", "content"}, map[string]any{
			"channel_id": map[string]any{"type": "string"},
			"message_id": map[string]any{"type": "string"},
			"content":    map[string]any{"type": "string"},
		}),
	},
}

// mcpGet serves static server metadata for capability probes.
func (h *handlers) mcpGet(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"name":         "discobridge",
		"version":      h.d.Version,
		"capabilities": map[string]any{"tools": true},
	})
}

// mcpPost handles the JSON-RPC envelope. Notifications get 204 with no
// body; everything else gets a result or error response. Malformed
// envelopes never crash the process.
func (h *handlers) mcpPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "unreadable body"}})
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn("rpc_parse_error", "error", err)
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}

	if strings.HasPrefix(req.Method, "notifications/") {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch req.Method {
	case "initialize":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    "discobridge",
				"version": h.d.Version,
			},
		}})
	case "tools/list":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": toolDescriptors}})
	case "tools/call":
		h.toolCall(w, r, req)
	default:
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeMethodNotFound, Message: "unknown method: " + req.Method}})
	}
}

// Typed argument structs, one per tool. Unknown tools are rejected at the
// boundary instead of falling through a string-keyed map.
type searchArgs struct {
	Query string `json:"query"`
}

type fetchArgs struct {
	MessageID string `json:"message_id"`
}

type mentionsArgs struct {
	Limit int `json:"limit"`
}

type sendArgs struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type replyArgs struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func (h *handlers) toolCall(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &call); err != nil || call.Name == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "invalid params"}})
		return
	}
	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var result any
	switch call.Name {
	case "search":
		var a searchArgs
		if err := json.Unmarshal(args, &a); err != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "invalid search arguments"}})
			return
		}
		result = h.d.Search.Search(a.Query)
	case "fetch":
		var a fetchArgs
		if err := json.Unmarshal(args, &a); err != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "invalid fetch arguments"}})
			return
		}
		result = h.d.Search.Fetch(r.Context(), a.MessageID)
	case "get_mentions":
		var a mentionsArgs
		if err := json.Unmarshal(args, &a); err != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "invalid get_mentions arguments"}})
			return
		}
		result = map[string]any{"mentions": h.d.Store.Mentions(a.Limit)}
	case "send_message":
		var a sendArgs
		if err := json.Unmarshal(args, &a); err != nil || a.ChannelID == "" || a.Content == "" {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "invalid send_message arguments"}})
			return
		}
		sent, err := h.d.Delivery.Send(r.Context(), a.ChannelID, a.Content)
		if err != nil {
			result = sendResult{Success: false, Error: err.Error()}
		} else {
			result = sendResult{Success: true, MessageID: sent.ID, URL: sent.URL}
		}
	case "reply_message":
		var a replyArgs
		if err := json.Unmarshal(args, &a); err != nil || a.ChannelID == "" || a.MessageID == "" || a.Content == "" {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "invalid reply_message arguments"}})
			return
		}
		sent, err := h.d.Delivery.Reply(r.Context(), a.ChannelID, a.MessageID, a.Content)
		if err != nil {
			result = sendResult{Success: false, Error: err.Error()}
		} else {
			result = sendResult{Success: true, MessageID: sent.ID, RepliedTo: a.MessageID, URL: sent.URL}
		}
	default:
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeMethodNotFound, Message: "unknown tool: " + call.Name}})
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32603, Message: "encode result"}})
		return
	}
	writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(encoded)}},
	}})
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
