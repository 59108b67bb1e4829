// Package snapshot derives content ETags for stored rule sets and fans out
// change notifications to stream subscribers.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

// ETag returns a strong validator for the records of a rule set: the hash
// covers the exact encoded records. Identical records always produce the same
// tag; nil and empty sets share one.
func ETag(records []rules.StorageRecord) string {
	if records == nil {
		records = []rules.StorageRecord{}
	}
	// StorageRecord only holds strings, bools and slices of them.
	blob, _ := json.Marshal(records)
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(blob))
}

// Of returns the ETag of a stored rule set.
func Of(rs *store.RuleSet) string {
	if rs == nil {
		return ETag(nil)
	}
	return ETag(rs.Records)
}
