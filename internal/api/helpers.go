package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/snapshot"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

// ===== HTTP Helpers =====

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a size-limited JSON body into v and writes the error
// response itself. It returns false when the handler should stop.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			RequestTooLargeError(w, r, "Request body exceeds 1MB limit")
		case errors.Is(err, rules.ErrUnknownElementType):
			BadRequestError(w, r, ErrCodeUnknownElementType, err.Error())
		default:
			BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

// ownerFromURL reads {kind} and {id}. An unknown kind writes a 400.
func ownerFromURL(w http.ResponseWriter, r *http.Request) (store.OwnerKind, string, bool) {
	kind := store.OwnerKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		BadRequestError(w, r, ErrCodeInvalidKind,
			fmt.Sprintf("Unknown owner kind '%s' (want campaign, coupon or product_rule)", kind))
		return "", "", false
	}
	return kind, chi.URLParam(r, "id"), true
}

// etagMatches reports whether header (an If-Match or If-None-Match value)
// names etag. "*" matches any existing representation. Strong comparison
// (If-Match) never matches a weak W/ candidate; weak comparison
// (If-None-Match) ignores the W/ prefix on both sides.
func etagMatches(header, etag string, strong bool) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strong {
			if !isWeakETag(candidate) && !isWeakETag(etag) && candidate == etag {
				return true
			}
			continue
		}
		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

func isWeakETag(tag string) bool {
	return strings.HasPrefix(tag, "W/")
}

// ===== Conversion Helpers =====

// ruleSetView is the wire form of a stored rule set.
type ruleSetView struct {
	Kind      store.OwnerKind `json:"kind"`
	OwnerID   string          `json:"ownerId"`
	Elements  rules.Elements  `json:"elements"`
	ETag      string          `json:"etag"`
	UpdatedAt string          `json:"updatedAt"`
}

// toView decodes the stored records of rs into UI elements.
func toView(rs *store.RuleSet) (ruleSetView, error) {
	elements, err := rules.FromStorage(rs.Records)
	if err != nil {
		return ruleSetView{}, fmt.Errorf("decode %s/%s: %w", rs.Kind, rs.OwnerID, err)
	}
	return ruleSetView{
		Kind:      rs.Kind,
		OwnerID:   rs.OwnerID,
		Elements:  rules.Elements(elements),
		ETag:      snapshot.Of(rs),
		UpdatedAt: rs.UpdatedAt.Format(time.RFC3339),
	}, nil
}
