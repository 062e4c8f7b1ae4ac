package models

// BotMessage is a single reply message in the webhook response envelope.
type BotMessage struct {
	Message string `json:"message"`
}

// WebhookResponse is the envelope the auto-reply app expects:
// { "data": [ { "message": "..." } ] }.
type WebhookResponse struct {
	Data []BotMessage `json:"data"`
}

// BotReply wraps a reply text in the webhook response envelope.
func BotReply(message string) WebhookResponse {
	return WebhookResponse{Data: []BotMessage{{Message: message}}}
}
