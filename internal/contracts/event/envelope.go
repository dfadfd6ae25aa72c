package event

import "time"

// RoutingKeyInteraction is the routing key every ingestion job travels under.
const RoutingKeyInteraction = "content.interaction"

// EnvelopeVersion is the current envelope wire version.
const EnvelopeVersion = 1

// Envelope is the canonical message envelope on the ingestion queue.
// message_id stays stable across redeliveries of the same job.
type Envelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	TraceID    string    `json:"trace_id,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

// InteractionPayload is one queued ingestion job. All fields except action
// are optional; the producer snapshots them from the originating request.
// Extra fields from newer producers are ignored by json.Unmarshal.
type InteractionPayload struct {
	ContentID *int64  `json:"content_id"`
	Action    string  `json:"action"`
	SessionID *string `json:"session_id,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`
}
