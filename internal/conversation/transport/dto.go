package transport

import "battbot_backend/internal/supportboard"

// WebhookEnvelope is the payload Support Board posts to the webhook endpoint.
// Only the message-sent function is acted on; everything else is acknowledged
// and ignored.
type WebhookEnvelope struct {
	Function string      `json:"function"`
	Data     WebhookData `json:"data"`
}

// WebhookData carries the message event details. Support Board serializes ids
// inconsistently as strings or numbers, so all ids use the flexible decoder.
type WebhookData struct {
	ConversationID     supportboard.FlexID `json:"conversation_id"`
	SenderUserID       supportboard.FlexID `json:"user_id"`
	ConversationUserID supportboard.FlexID `json:"conversation_user_id"`
	MessageID          supportboard.FlexID `json:"message_id"`
	Message            string              `json:"message"`
	ConversationSource string              `json:"conversation_source"`
}

// WebhookAck is returned for every webhook delivery. Support Board retries on
// non-200 responses, so even malformed payloads are acknowledged with an error
// note in the body instead of an error status.
type WebhookAck struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
