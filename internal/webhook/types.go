package webhook

import (
	"time"

	"github.com/TimurManjosov/goloyalty/internal/snapshot"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

// Event types that can trigger webhooks
const (
	EventRuleSetSaved   = "ruleset.saved"
	EventRuleSetDeleted = "ruleset.deleted"
)

// Event is the JSON body posted to every matching endpoint.
type Event struct {
	Type      string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      store.OwnerKind `json:"kind"`
	OwnerID   string          `json:"ownerId"`
	ETag      string          `json:"etag,omitempty"`
}

// EventFromChange converts a rule-set change notification.
func EventFromChange(c snapshot.Change, at time.Time) Event {
	typ := EventRuleSetSaved
	if c.Deleted {
		typ = EventRuleSetDeleted
	}
	return Event{Type: typ, Timestamp: at.UTC(), Kind: c.Kind, OwnerID: c.OwnerID, ETag: c.ETag}
}

// Endpoint is one receiver of webhook deliveries.
type Endpoint struct {
	URL        string
	Secret     string
	Kinds      []store.OwnerKind // empty means every kind
	MaxRetries int
	Timeout    time.Duration
}

func (e Endpoint) matches(event Event) bool {
	if len(e.Kinds) == 0 {
		return true
	}
	for _, k := range e.Kinds {
		if k == event.Kind {
			return true
		}
	}
	return false
}
