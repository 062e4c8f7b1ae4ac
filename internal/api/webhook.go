package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// Key aliases the various auto-reply apps use for the sender and message
// fields. The first non-empty key wins.
var (
	senderKeys = []string{
		"senderNumber", "senderPhone", "senderJid", "from", "contact",
		"number", "msisdn", "whatsapp", "wa_number",
	}
	messageKeys = []string{
		"senderMessage", "message", "body", "msg", "text", "message_text", "data",
	}
)

const (
	unauthorizedReply = "❌ Unauthorized — invalid webhook key."
	temporaryErrReply = "⚠️ Temporary error. Please try again."
	maxWebhookBody    = 1 << 20
)

// webhookHandler is the single inbound endpoint for the auto-reply app.
// Every outcome, including auth failure, is a 200 with a reply envelope:
// auto-reply apps surface the message body but treat non-200 as retryable.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.webhookKey != "" && !secureEquals(r.Header.Get("Authorization"), s.webhookKey) {
		slog.Warn("webhook rejected: bad key", "remote", r.RemoteAddr)
		writeBotReply(w, unauthorizedReply)
		return
	}

	params := parseWebhookParams(r)
	from := firstParam(params, senderKeys)
	if from == "" {
		from = strings.TrimSpace(stringValue(params["senderName"]))
	}
	if from == "" {
		from = "unknown"
	}
	message := firstParam(params, messageKeys)

	reply, err := s.engine.HandleMessage(r.Context(), from, message)
	if err != nil {
		slog.Error("webhook turn failed", "error", err, "from", from)
		writeBotReply(w, temporaryErrReply)
		return
	}
	writeBotReply(w, reply)
}

// parseWebhookParams reads the request as JSON when possible, falling back
// to form parameters, mirroring the permissive intake of auto-reply apps.
func parseWebhookParams(r *http.Request) map[string]interface{} {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err == nil && len(body) > 0 {
		var params map[string]interface{}
		if jsonErr := json.Unmarshal(body, &params); jsonErr == nil {
			return params
		}
		// restore the body so ParseForm can consume it
		r.Body = io.NopCloser(strings.NewReader(string(body)))
	}

	params := make(map[string]interface{})
	if err := r.ParseForm(); err != nil {
		slog.Debug("webhook form parse failed", "error", err)
		return params
	}
	for k, v := range r.Form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func firstParam(params map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if s := strings.TrimSpace(stringValue(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func secureEquals(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
