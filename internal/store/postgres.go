package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getRuleSetSQL = `
SELECT owner_kind, owner_id, records, updated_at
FROM rule_sets
WHERE owner_kind = $1 AND owner_id = $2`

	listRuleSetsSQL = `
SELECT owner_kind, owner_id, records, updated_at
FROM rule_sets
WHERE owner_kind = $1
ORDER BY owner_id`

	saveRuleSetSQL = `
INSERT INTO rule_sets (owner_kind, owner_id, records, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (owner_kind, owner_id)
DO UPDATE SET records = EXCLUDED.records, updated_at = EXCLUDED.updated_at`

	deleteRuleSetSQL = `
DELETE FROM rule_sets
WHERE owner_kind = $1 AND owner_id = $2`
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Each rule set is one row; its records live in a jsonb column so the whole
// set is written and read in a single statement.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying connection pool so other tables in the same
// database (the audit log) can share it.
func (p *PostgresStore) Pool() *pgxpool.Pool {
	return p.pool
}

// GetRuleSet retrieves a single rule set from the database.
func (p *PostgresStore) GetRuleSet(ctx context.Context, kind OwnerKind, ownerID string) (*RuleSet, error) {
	rs, err := scanRuleSet(p.pool.QueryRow(ctx, getRuleSetSQL, string(kind), ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rs, nil
}

// ListRuleSets retrieves all rule sets of one owner kind from the database.
func (p *PostgresStore) ListRuleSets(ctx context.Context, kind OwnerKind) ([]RuleSet, error) {
	rows, err := p.pool.Query(ctx, listRuleSetsSQL, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]RuleSet, 0)
	for rows.Next() {
		rs, err := scanRuleSet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rs)
	}
	return result, rows.Err()
}

// SaveRuleSet creates or replaces a rule set in the database.
func (p *PostgresStore) SaveRuleSet(ctx context.Context, params SaveParams) error {
	payload, err := json.Marshal(ensureRecordsInitialized(params.Records))
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	_, err = p.pool.Exec(ctx, saveRuleSetSQL, string(params.Kind), params.OwnerID, string(payload))
	return err
}

// DeleteRuleSet removes a rule set from the database.
func (p *PostgresStore) DeleteRuleSet(ctx context.Context, kind OwnerKind, ownerID string) error {
	_, err := p.pool.Exec(ctx, deleteRuleSetSQL, string(kind), ownerID)
	return err
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// scanRuleSet converts a database row to a store RuleSet.
func scanRuleSet(row pgx.Row) (RuleSet, error) {
	var (
		kind      string
		ownerID   string
		raw       []byte
		updatedAt time.Time
	)
	if err := row.Scan(&kind, &ownerID, &raw, &updatedAt); err != nil {
		return RuleSet{}, err
	}

	records, err := unmarshalRecords(raw)
	if err != nil {
		return RuleSet{}, fmt.Errorf("decode records of %s/%s: %w", kind, ownerID, err)
	}

	return RuleSet{
		Kind:      OwnerKind(kind),
		OwnerID:   ownerID,
		Records:   records,
		UpdatedAt: updatedAt.UTC(),
	}, nil
}
