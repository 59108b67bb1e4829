package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goloyalty/internal/audit"
	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/snapshot"
	"github.com/TimurManjosov/goloyalty/internal/store"
	"github.com/TimurManjosov/goloyalty/internal/telemetry"
	"github.com/TimurManjosov/goloyalty/internal/validation"
)

type putRuleSetRequest struct {
	Elements rules.Elements `json:"elements"`
}

type listRuleSetsResponse struct {
	Kind     store.OwnerKind `json:"kind"`
	RuleSets []ruleSetView   `json:"ruleSets"`
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// handleListRuleSets handles GET /v1/rulesets/{kind}.
func (s *Server) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	kind, _, ok := ownerFromURL(w, r)
	if !ok {
		return
	}

	sets, err := s.store.ListRuleSets(r.Context(), kind)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(kind)).Msg("list rule sets")
		InternalError(w, r, "Failed to list rule sets")
		return
	}

	views := make([]ruleSetView, 0, len(sets))
	for i := range sets {
		v, err := toView(&sets[i])
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("decode stored rule set")
			InternalError(w, r, "Stored rule set could not be decoded")
			return
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, listRuleSetsResponse{Kind: kind, RuleSets: views})
}

// handleGetRuleSet handles GET /v1/rulesets/{kind}/{id}.
// A matching If-None-Match yields 304 without a body.
func (s *Server) handleGetRuleSet(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := ownerFromURL(w, r)
	if !ok {
		return
	}

	rs, err := s.store.GetRuleSet(r.Context(), kind, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError(w, r, "No rule set for "+string(kind)+" '"+ownerID+"'")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(kind)).Str("owner_id", ownerID).Msg("get rule set")
		InternalError(w, r, "Failed to load rule set")
		return
	}

	etag := snapshot.Of(rs)
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag, false) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	view, err := toView(rs)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("decode stored rule set")
		InternalError(w, r, "Stored rule set could not be decoded")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePutRuleSet handles PUT /v1/rulesets/{kind}/{id}: the whole element
// sequence is validated, serialized with fresh ids and saved in one write.
func (s *Server) handlePutRuleSet(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := ownerFromURL(w, r)
	if !ok {
		return
	}

	var req putRuleSetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := validation.ValidateSaveRequest(validation.SaveRequest{
		Kind:     string(kind),
		OwnerID:  ownerID,
		Elements: req.Elements,
	}, s.limits)
	if !result.Valid {
		for field := range result.Errors {
			telemetry.ValidationFailures.WithLabelValues(string(kind), field).Inc()
		}
		ValidationError(w, r, "Rule set is invalid", result.Errors)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.store.GetRuleSet(r.Context(), kind, ownerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("load current rule set")
		InternalError(w, r, "Failed to load rule set")
		return
	}
	var (
		beforeETag    string
		beforeRecords []rules.StorageRecord
	)
	if current != nil {
		beforeETag = snapshot.Of(current)
		beforeRecords = current.Records
	}

	if im := r.Header.Get("If-Match"); im != "" {
		switch {
		case current == nil:
			PreconditionFailedError(w, r, "Rule set does not exist")
			return
		case !etagMatches(im, beforeETag, true):
			PreconditionFailedError(w, r, "Rule set was modified by someone else; reload and retry")
			return
		}
	}

	event := audit.NewEventBuilder(r).ForRuleSet(kind, ownerID).WithAction(audit.ActionSaved)

	records := rules.ToStorage(req.Elements, s.newID)
	if err := s.store.SaveRuleSet(r.Context(), store.SaveParams{Kind: kind, OwnerID: ownerID, Records: records}); err != nil {
		telemetry.RuleSetWrites.WithLabelValues(string(kind), "save", "error").Inc()
		s.recordAudit(event.WithETags(beforeETag, "").Failure(err.Error()).Build())
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(kind)).Str("owner_id", ownerID).Msg("save rule set")
		InternalError(w, r, "Failed to save rule set")
		return
	}

	saved, err := s.store.GetRuleSet(r.Context(), kind, ownerID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("reload saved rule set")
		InternalError(w, r, "Failed to load saved rule set")
		return
	}
	view, err := toView(saved)
	if err != nil {
		InternalError(w, r, "Stored rule set could not be decoded")
		return
	}

	s.recordAudit(event.
		WithETags(beforeETag, view.ETag).
		WithChanges(audit.Diff(beforeRecords, saved.Records)).
		Build())
	telemetry.RuleSetWrites.WithLabelValues(string(kind), "save", "ok").Inc()
	telemetry.RuleSetElements.WithLabelValues(string(kind)).Observe(float64(len(records)))
	s.feed.Publish(snapshot.Change{Kind: kind, OwnerID: ownerID, ETag: view.ETag})
	zerolog.Ctx(r.Context()).Info().
		Str("kind", string(kind)).
		Str("owner_id", ownerID).
		Int("elements", len(records)).
		Str("etag", view.ETag).
		Msg("rule set saved")

	w.Header().Set("ETag", view.ETag)
	writeJSON(w, http.StatusOK, view)
}

// handleDeleteRuleSet handles DELETE /v1/rulesets/{kind}/{id}. Idempotent.
func (s *Server) handleDeleteRuleSet(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := ownerFromURL(w, r)
	if !ok {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var beforeETag string
	if current, err := s.store.GetRuleSet(r.Context(), kind, ownerID); err == nil {
		beforeETag = snapshot.Of(current)
	}
	event := audit.NewEventBuilder(r).ForRuleSet(kind, ownerID).WithAction(audit.ActionDeleted).WithETags(beforeETag, "")

	if err := s.store.DeleteRuleSet(r.Context(), kind, ownerID); err != nil {
		telemetry.RuleSetWrites.WithLabelValues(string(kind), "delete", "error").Inc()
		s.recordAudit(event.Failure(err.Error()).Build())
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(kind)).Str("owner_id", ownerID).Msg("delete rule set")
		InternalError(w, r, "Failed to delete rule set")
		return
	}

	telemetry.RuleSetWrites.WithLabelValues(string(kind), "delete", "ok").Inc()
	s.recordAudit(event.Build())
	s.feed.Publish(snapshot.Change{Kind: kind, OwnerID: ownerID, Deleted: true})
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateRuleSet handles POST /v1/rulesets/{kind}/{id}/validate,
// a dry run of the PUT checks that never writes.
func (s *Server) handleValidateRuleSet(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := ownerFromURL(w, r)
	if !ok {
		return
	}

	var req putRuleSetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := validation.ValidateSaveRequest(validation.SaveRequest{
		Kind:     string(kind),
		OwnerID:  ownerID,
		Elements: req.Elements,
	}, s.limits)
	if result.Valid {
		writeJSON(w, http.StatusOK, validateResponse{Valid: true})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: false, Errors: result.Errors})
}
