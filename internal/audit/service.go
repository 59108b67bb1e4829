package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goloyalty/internal/store"
)

// Action constants for audit logging
const (
	ActionSaved      = "saved"
	ActionDeleted    = "deleted"
	ActionAuthFailed = "auth_failed"
)

// Status constants for audit logging
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

const writeTimeout = 5 * time.Second

// Source represents request metadata
type Source struct {
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
}

// Event is one audited write against a rule set.
type Event struct {
	OccurredAt   time.Time       `json:"occurredAt"`
	RequestID    string          `json:"requestId,omitempty"`
	Source       Source          `json:"source"`
	Action       string          `json:"action"`
	Kind         store.OwnerKind `json:"kind,omitempty"`
	OwnerID      string          `json:"ownerId,omitempty"`
	BeforeETag   string          `json:"beforeEtag,omitempty"`
	AfterETag    string          `json:"afterEtag,omitempty"`
	Changes      *Changes        `json:"changes,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Kind    store.OwnerKind
	OwnerID string
	Limit   int
}

// Reader is implemented by sinks that can list what they stored, newest first.
type Reader interface {
	List(ctx context.Context, f Filter) ([]Event, error)
}

// Service queues audit events and writes them from a background worker so
// request handlers never wait on the sink.
type Service struct {
	sink   Sink
	logger zerolog.Logger
	now    func() time.Time
	queue  chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewService creates a new audit service and starts its worker.
func NewService(sink Sink, logger zerolog.Logger, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &Service{
		sink:   sink,
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *Service) worker() {
	defer close(s.done)
	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.sink.Write(ctx, event); err != nil {
			s.logger.Error().Err(err).
				Str("action", event.Action).
				Str("kind", string(event.Kind)).
				Str("owner_id", event.OwnerID).
				Msg("failed to write audit event")
		}
		cancel()
	}
}

// Log queues event. A full queue drops the event with an error log.
// Events logged after Close are dropped.
func (s *Service) Log(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}

	select {
	case s.queue <- event:
	default:
		s.logger.Error().
			Str("action", event.Action).
			Str("kind", string(event.Kind)).
			Str("owner_id", event.OwnerID).
			Msg("audit queue full, dropping event")
	}
}

// Reader returns the sink as a Reader when it supports listing.
func (s *Service) Reader() (Reader, bool) {
	r, ok := s.sink.(Reader)
	return r, ok
}

// Close stops accepting events and waits until the queued ones are written.
// It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return nil
}
