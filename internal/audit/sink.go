package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/goloyalty/internal/store"
)

const defaultListLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func (f Filter) matches(e Event) bool {
	return (f.Kind == "" || e.Kind == f.Kind) && (f.OwnerID == "" || e.OwnerID == f.OwnerID)
}

// MemorySink keeps the most recent events in a fixed-size ring.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewMemorySink creates a sink holding at most capacity events.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemorySink{events: make([]Event, capacity)}
}

// Write stores event, overwriting the oldest one when the ring is full.
func (m *MemorySink) Write(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[m.next] = event
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// List returns matching events, newest first.
func (m *MemorySink) List(_ context.Context, f Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.events)
	}
	out := make([]Event, 0, min(n, f.limit()))
	for i := 1; i <= n && len(out) < f.limit(); i++ {
		e := m.events[(m.next-i+len(m.events))%len(m.events)]
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

const (
	insertAuditSQL = `
INSERT INTO audit_log (occurred_at, request_id, ip_address, user_agent, action,
                       owner_kind, owner_id, before_etag, after_etag, changes, status, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)`

	listAuditSQL = `
SELECT occurred_at, request_id, ip_address, user_agent, action,
       owner_kind, owner_id, before_etag, after_etag, changes, status, error_message
FROM audit_log
WHERE ($1 = '' OR owner_kind = $1) AND ($2 = '' OR owner_id = $2)
ORDER BY occurred_at DESC, id DESC
LIMIT $3`
)

// PostgresSink writes events to the audit_log table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a new PostgreSQL audit sink
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Write persists an audit event to the database
func (s *PostgresSink) Write(ctx context.Context, e Event) error {
	var changes []byte
	if e.Changes != nil {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes: %w", err)
		}
		changes = b
	}
	_, err := s.pool.Exec(ctx, insertAuditSQL,
		e.OccurredAt, e.RequestID, e.Source.IPAddress, e.Source.UserAgent, e.Action,
		string(e.Kind), e.OwnerID, e.BeforeETag, e.AfterETag, changes, e.Status, e.ErrorMessage)
	return err
}

// List returns matching events, newest first.
func (s *PostgresSink) List(ctx context.Context, f Filter) ([]Event, error) {
	rows, err := s.pool.Query(ctx, listAuditSQL, string(f.Kind), f.OwnerID, f.limit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var (
			e       Event
			kind    string
			changes []byte
		)
		if err := rows.Scan(&e.OccurredAt, &e.RequestID, &e.Source.IPAddress, &e.Source.UserAgent, &e.Action,
			&kind, &e.OwnerID, &e.BeforeETag, &e.AfterETag, &changes, &e.Status, &e.ErrorMessage); err != nil {
			return nil, err
		}
		e.Kind = store.OwnerKind(kind)
		if len(changes) > 0 {
			e.Changes = &Changes{}
			if err := json.Unmarshal(changes, e.Changes); err != nil {
				return nil, fmt.Errorf("unmarshal changes: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
