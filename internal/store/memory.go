package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type ruleSetKey struct {
	kind    OwnerKind
	ownerID string
}

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[ruleSetKey]RuleSet
	now  func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: make(map[ruleSetKey]RuleSet),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// GetRuleSet retrieves a rule set by owner.
func (m *MemoryStore) GetRuleSet(ctx context.Context, kind OwnerKind, ownerID string) (*RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, exists := m.sets[ruleSetKey{kind, ownerID}]
	if !exists {
		return nil, ErrNotFound
	}

	rs.Records = cloneRecords(rs.Records)
	return &rs, nil
}

// ListRuleSets retrieves all rule sets of one owner kind.
func (m *MemoryStore) ListRuleSets(ctx context.Context, kind OwnerKind) ([]RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]RuleSet, 0)
	for key, rs := range m.sets {
		if key.kind == kind {
			rs.Records = cloneRecords(rs.Records)
			result = append(result, rs)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OwnerID < result[j].OwnerID })
	return result, nil
}

// SaveRuleSet creates or replaces a rule set in memory.
func (m *MemoryStore) SaveRuleSet(ctx context.Context, params SaveParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets[ruleSetKey{params.Kind, params.OwnerID}] = RuleSet{
		Kind:      params.Kind,
		OwnerID:   params.OwnerID,
		Records:   ensureRecordsInitialized(cloneRecords(params.Records)),
		UpdatedAt: m.now(),
	}
	return nil
}

// DeleteRuleSet removes a rule set from memory.
func (m *MemoryStore) DeleteRuleSet(ctx context.Context, kind OwnerKind, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: no error if the rule set doesn't exist
	delete(m.sets, ruleSetKey{kind, ownerID})
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
