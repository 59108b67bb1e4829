package audit

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimurManjosov/goloyalty/internal/store"
)

// EventBuilder provides a fluent API for constructing audit events.
//
//	event := audit.NewEventBuilder(r).
//		ForRuleSet(kind, ownerID).
//		WithAction(audit.ActionSaved).
//		WithETags(before, after).
//		Build()
type EventBuilder struct {
	event Event
}

// NewEventBuilder creates a builder initialized with the request id and
// source of r.
func NewEventBuilder(r *http.Request) *EventBuilder {
	return &EventBuilder{
		event: Event{
			RequestID: middleware.GetReqID(r.Context()),
			Source: Source{
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
			},
			Status: StatusSuccess,
		},
	}
}

// clientIP strips the port RemoteAddr carries unless RealIP already replaced it.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ForRuleSet sets the rule set the event is about.
func (b *EventBuilder) ForRuleSet(kind store.OwnerKind, ownerID string) *EventBuilder {
	b.event.Kind = kind
	b.event.OwnerID = ownerID
	return b
}

// WithAction sets the action for the event.
func (b *EventBuilder) WithAction(action string) *EventBuilder {
	b.event.Action = action
	return b
}

// WithETags records the versions before and after the write.
func (b *EventBuilder) WithETags(before, after string) *EventBuilder {
	b.event.BeforeETag = before
	b.event.AfterETag = after
	return b
}

// WithChanges sets the changes for the event.
func (b *EventBuilder) WithChanges(changes *Changes) *EventBuilder {
	b.event.Changes = changes
	return b
}

// Failure marks the event as failed and sets an error message.
func (b *EventBuilder) Failure(errorMsg string) *EventBuilder {
	b.event.Status = StatusFailure
	b.event.ErrorMessage = errorMsg
	return b
}

// Build returns the constructed Event.
func (b *EventBuilder) Build() Event {
	return b.event
}
