package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TimurManjosov/goloyalty/internal/rules"
)

// ErrNotFound is returned when no rule set exists for the requested owner.
var ErrNotFound = errors.New("rule set not found")

// Store defines the interface for rule-set persistence operations.
// A rule set is always written and read as one unit.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// GetRuleSet retrieves the rule set owned by (kind, ownerID).
	// Returns ErrNotFound if none exists.
	GetRuleSet(ctx context.Context, kind OwnerKind, ownerID string) (*RuleSet, error)

	// ListRuleSets retrieves every rule set of the given owner kind, ordered by owner id.
	// Returns an empty slice if none are found.
	ListRuleSets(ctx context.Context, kind OwnerKind) ([]RuleSet, error)

	// SaveRuleSet creates or replaces the rule set of an owner in a single write.
	SaveRuleSet(ctx context.Context, params SaveParams) error

	// DeleteRuleSet removes a rule set.
	// Returns no error if it doesn't exist (idempotent).
	DeleteRuleSet(ctx context.Context, kind OwnerKind, ownerID string) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// OwnerKind is the type of entity a rule set belongs to.
type OwnerKind string

const (
	OwnerCampaign    OwnerKind = "campaign"
	OwnerCoupon      OwnerKind = "coupon"
	OwnerProductRule OwnerKind = "product_rule"
)

// Feature returns the rules feature whose condition types the owner accepts.
func (k OwnerKind) Feature() rules.Feature {
	return rules.Feature(k)
}

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	return rules.IsValidFeature(k.Feature())
}

// RuleSet is the persisted rule sequence of one campaign, coupon or product rule.
type RuleSet struct {
	Kind      OwnerKind             `json:"kind" yaml:"kind"`
	OwnerID   string                `json:"ownerId" yaml:"ownerId"`
	Records   []rules.StorageRecord `json:"records" yaml:"records"`
	UpdatedAt time.Time             `json:"updatedAt" yaml:"updatedAt"`
}

// SaveParams contains the parameters for saving a rule set.
type SaveParams struct {
	Kind    OwnerKind             `json:"kind"`
	OwnerID string                `json:"ownerId"`
	Records []rules.StorageRecord `json:"records"`
}

// ensureRecordsInitialized makes sure an absent rule set is stored as [] rather than null.
func ensureRecordsInitialized(records []rules.StorageRecord) []rules.StorageRecord {
	if records == nil {
		return []rules.StorageRecord{}
	}
	return records
}

// unmarshalRecords decodes a stored records column. nil, empty and JSON null
// all decode to an empty, non-nil slice.
func unmarshalRecords(raw json.RawMessage) ([]rules.StorageRecord, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []rules.StorageRecord{}, nil
	}
	var records []rules.StorageRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return ensureRecordsInitialized(records), nil
}

// cloneRecords deep-copies records so callers cannot alias stored state.
func cloneRecords(records []rules.StorageRecord) []rules.StorageRecord {
	if records == nil {
		return nil
	}
	out := make([]rules.StorageRecord, len(records))
	for i, r := range records {
		if r.Conditions != nil {
			conds := make([]rules.Condition, len(r.Conditions))
			copy(conds, r.Conditions)
			r.Conditions = conds
		}
		out[i] = r
	}
	return out
}
