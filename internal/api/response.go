// Package api response helpers.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sregle/vtubot/internal/models"
)

// Pre-marshaled fallback so a marshal failure never leaves the auto-reply
// app without a well-formed envelope.
var fallbackReplyResponse []byte

func init() {
	var err error
	fallbackReplyResponse, err = json.Marshal(models.BotReply("⚠️ Internal server error."))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback reply response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response with the given status code.
// Marshaling happens before headers are written so encoding errors can
// still change the status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackReplyResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeBotReply wraps a reply text in the auto-reply envelope with a 200.
func writeBotReply(w http.ResponseWriter, message string) {
	writeJSONResponse(w, http.StatusOK, models.BotReply(message))
}
