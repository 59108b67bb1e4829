package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/goloyalty/internal/api"
	"github.com/TimurManjosov/goloyalty/internal/audit"
	"github.com/TimurManjosov/goloyalty/internal/config"
	"github.com/TimurManjosov/goloyalty/internal/logging"
	"github.com/TimurManjosov/goloyalty/internal/store"
	"github.com/TimurManjosov/goloyalty/internal/telemetry"
	"github.com/TimurManjosov/goloyalty/internal/validation"
	"github.com/TimurManjosov/goloyalty/internal/webhook"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server")
		os.Exit(1)
	}
}

// run returns only after every deferred close has run, so queued audit
// events are written even when shutdown fails.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("store %s: %w", cfg.StoreType, err)
	}
	defer st.Close()

	var auditSvc *audit.Service
	if cfg.AuditEnabled {
		auditSvc = audit.NewService(auditSink(st), logger, cfg.AuditQueueSize)
		defer auditSvc.Close()
	}

	srvAPI := api.NewServer(st, api.Options{
		AdminAPIKey:    cfg.AdminAPIKey,
		RateLimitPerIP: cfg.RateLimitPerIP,
		Limits: validation.Limits{
			MaxElements:           cfg.MaxElements,
			MaxConditionsPerGroup: cfg.MaxConditionsPerGroup,
		},
		Logger: &logger,
		Audit:  auditSvc,
	})

	apiSrv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srvAPI.Router(),
		ReadTimeout: 3 * time.Second,
		// no write timeout: the change stream is long-lived
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	apiSrv.RegisterOnShutdown(srvAPI.CloseStreams)

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", telemetry.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 3 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range []struct {
		name string
		srv  *http.Server
	}{{"api", apiSrv}, {"metrics", metricsSrv}} {
		g.Go(func() error {
			logger.Info().Str("server", s.name).Str("addr", s.srv.Addr).Msg("listening")
			if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if len(cfg.WebhookURLs) > 0 {
		endpoints := make([]webhook.Endpoint, 0, len(cfg.WebhookURLs))
		for _, u := range cfg.WebhookURLs {
			endpoints = append(endpoints, webhook.Endpoint{
				URL:        u,
				Secret:     cfg.WebhookSecret,
				MaxRetries: cfg.WebhookMaxRetries,
				Timeout:    cfg.WebhookTimeout,
			})
		}
		dispatcher := webhook.NewDispatcher(endpoints, logger)
		dispatcher.Start()
		defer dispatcher.Close()
		g.Go(func() error { return dispatcher.Run(gctx, srvAPI.Feed()) })
	}

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(apiSrv.Shutdown(shutCtx), metricsSrv.Shutdown(shutCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}

// auditSink keeps the audit log next to the rule sets: in the same database
// for postgres, in memory otherwise.
func auditSink(st store.Store) audit.Sink {
	if pg, ok := st.(*store.PostgresStore); ok {
		return audit.NewPostgresSink(pg.Pool())
	}
	return audit.NewMemorySink(0)
}
