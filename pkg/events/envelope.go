package events

import (
	"encoding/json"
	"time"
)

// PayloadEnvelope is the stable payload structure SPIRAL services publish on
// the order events topic. Producers own the schema; this mirror must stay
// backward compatible with theirs.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}
