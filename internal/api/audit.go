package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goloyalty/internal/audit"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

const maxAuditLimit = 500

type listAuditResponse struct {
	Events []audit.Event `json:"events"`
}

// handleListAudit handles GET /v1/audit?kind=&ownerId=&limit=, newest first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	var reader audit.Reader
	if s.audit != nil {
		reader, _ = s.audit.Reader()
	}
	if reader == nil {
		NotFoundError(w, r, "Audit log is not enabled")
		return
	}

	q := r.URL.Query()
	f := audit.Filter{OwnerID: q.Get("ownerId")}
	if k := q.Get("kind"); k != "" {
		f.Kind = store.OwnerKind(k)
		if !f.Kind.Valid() {
			BadRequestError(w, r, ErrCodeInvalidKind, fmt.Sprintf("Unknown owner kind '%s'", k))
			return
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > maxAuditLimit {
			BadRequestErrorWithFields(w, r, ErrCodeValidation, "Invalid limit",
				map[string]string{"limit": fmt.Sprintf("limit must be between 1 and %d", maxAuditLimit)})
			return
		}
		f.Limit = n
	}

	events, err := reader.List(r.Context(), f)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list audit events")
		InternalError(w, r, "Failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, listAuditResponse{Events: events})
}
