package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goloyalty/internal/audit"
	"github.com/TimurManjosov/goloyalty/internal/ids"
	"github.com/TimurManjosov/goloyalty/internal/logging"
	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/snapshot"
	"github.com/TimurManjosov/goloyalty/internal/store"
	"github.com/TimurManjosov/goloyalty/internal/telemetry"
	"github.com/TimurManjosov/goloyalty/internal/validation"
)

const (
	requestTimeout     = 5 * time.Second
	maxRequestBodySize = 1 << 20 // 1 MB
	streamHeartbeat    = 25 * time.Second
)

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	AdminAPIKey    string
	RateLimitPerIP int // requests per minute; 0 disables the limiter
	Limits         validation.Limits
	Logger         *zerolog.Logger // nil disables request logging
	Feed           *snapshot.Feed
	NewID          rules.IDGenerator
	Audit          *audit.Service // nil disables the audit trail
}

type Server struct {
	store       store.Store
	feed        *snapshot.Feed
	adminAPIKey string
	rateLimit   int
	limits      validation.Limits
	logger      zerolog.Logger
	newID       rules.IDGenerator
	audit       *audit.Service

	// serializes the If-Match check with the save that follows it
	writeMu sync.Mutex

	streamsDone chan struct{}
	closeOnce   sync.Once
}

func NewServer(st store.Store, opts Options) *Server {
	s := &Server{
		store:       st,
		feed:        opts.Feed,
		adminAPIKey: opts.AdminAPIKey,
		rateLimit:   opts.RateLimitPerIP,
		limits:      opts.Limits,
		logger:      zerolog.Nop(),
		newID:       opts.NewID,
		audit:       opts.Audit,
		streamsDone: make(chan struct{}),
	}
	if s.feed == nil {
		s.feed = snapshot.NewFeed(0)
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if s.newID == nil {
		s.newID = ids.New
	}
	return s
}

// Feed returns the change feed the server publishes committed writes to.
func (s *Server) Feed() *snapshot.Feed { return s.feed }

// CloseStreams ends every open change stream and makes new ones return right
// after their ready event. http.Server.Shutdown does not cancel active
// requests, so register it with RegisterOnShutdown.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.streamsDone) })
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer, telemetry.Middleware)
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(s.rateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				RateLimitedError(w, r, "Rate limit exceeded, retry later")
			}),
		))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// long-lived: change feed (no request timeout)
	r.Get("/v1/rulesets/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/v1/rulesets/{kind}", s.handleListRuleSets)
		r.Get("/v1/rulesets/{kind}/{id}", s.handleGetRuleSet)

		// admin (protected)
		r.Group(func(r chi.Router) {
			r.Use(s.authAdmin)
			r.Put("/v1/rulesets/{kind}/{id}", s.handlePutRuleSet)
			r.Delete("/v1/rulesets/{kind}/{id}", s.handleDeleteRuleSet)
			r.Post("/v1/rulesets/{kind}/{id}/validate", s.handleValidateRuleSet)
			r.Get("/v1/audit", s.handleListAudit)
		})
	})

	return r
}

// ---- middleware ----

func (s *Server) authAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			s.auditAuthFailure(r, "missing bearer token")
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if s.adminAPIKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			s.auditAuthFailure(r, "invalid token")
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auditAuthFailure(r *http.Request, reason string) {
	s.recordAudit(audit.NewEventBuilder(r).
		ForRuleSet(store.OwnerKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id")).
		WithAction(audit.ActionAuthFailed).
		Failure(reason).
		Build())
}

func (s *Server) recordAudit(e audit.Event) {
	if s.audit != nil {
		s.audit.Log(e)
	}
}
