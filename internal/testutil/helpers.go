// Package testutil holds shared fixtures for HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/TimurManjosov/goloyalty/internal/api"
	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

// NewTestServer creates a server over an in-memory store with deterministic
// ids ("id-1", "id-2", ...) and no rate limit.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	return NewTestServerWithOptions(t, api.Options{AdminAPIKey: adminKey})
}

// NewTestServerWithOptions is NewTestServer with caller-supplied options.
// A nil NewID is replaced by SequentialIDs("id").
func NewTestServerWithOptions(t *testing.T, opts api.Options) (*api.Server, *store.MemoryStore) {
	t.Helper()
	if opts.NewID == nil {
		opts.NewID = SequentialIDs("id")
	}
	memStore := store.NewMemoryStore()
	return api.NewServer(memStore, opts), memStore
}

// SequentialIDs returns a goroutine-safe generator of prefix-1, prefix-2, ...
func SequentialIDs(prefix string) rules.IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedRuleSets populates the store with rule sets.
func SeedRuleSets(ctx context.Context, st store.Store, sets []store.SaveParams) error {
	for _, s := range sets {
		if err := st.SaveRuleSet(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// CartTotalRecords is a one-group rule set: cart total greater than value.
func CartTotalRecords(groupID, conditionID, value string) []rules.StorageRecord {
	return []rules.StorageRecord{{
		ID:    groupID,
		Type:  rules.ElementGroup,
		Match: rules.MatchAll,
		Conditions: []rules.Condition{{
			ID:       conditionID,
			Type:     rules.TypeCartTotal,
			Operator: rules.OpGreaterThan,
			Value:    value,
			Enabled:  true,
		}},
	}}
}
