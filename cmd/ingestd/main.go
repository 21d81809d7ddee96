// Command ingestd runs the central Ingest Service (§4.3, §4.7): the HTTP
// intake that validates, persists, scores and escalates activity events
// reported by every deployed Activity Agent.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashgrover/insiderwatch/internal/config"
	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/escalation"
	"github.com/ashgrover/insiderwatch/internal/ingest"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/storage"
	"github.com/ashgrover/insiderwatch/internal/supervisor"
	"github.com/ashgrover/insiderwatch/internal/supervisor/services"
	"github.com/ashgrover/insiderwatch/internal/trainer"
)

func main() {
	cfg, err := config.LoadIngestConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load ingest configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("listen_addr", cfg.ListenAddr).Msg("starting insiderwatch ingest service")

	store, err := storage.Open(cfg.DatabasePath, cfg.DisplayTimezone)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing storage")
		}
	}()

	det := detector.New()
	itsEngine := its.New()
	thresholds := escalation.Thresholds{
		AlertFromML:         cfg.ThresholdAlertML,
		ThreatFromML:        cfg.ThresholdThreatML,
		IncidentFromML:      cfg.ThresholdIncidentML,
		AlertSuppression:    cfg.AlertSuppressionWindow,
		IncidentDedupWindow: cfg.IncidentDedupWindow,
	}

	service := ingest.NewService(store, det, itsEngine, thresholds)
	handlers := ingest.NewHandlers(service, store)
	router := ingest.NewRouter(handlers, ingest.RouterConfig{
		CORSAllowedOrigins:      cfg.CORSOrigins,
		IngestRateLimitRequests: cfg.RateLimitRequestsPerMinute,
		IngestRateLimitWindow:   time.Minute,
		ReadRateLimitRequests:   cfg.RateLimitRequestsPerMinute,
		ReadRateLimitWindow:     time.Minute,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree("ingestd", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	refresher := trainer.NewWeightsRefresher(store, det, itsEngine)
	tree.AddCollectionService(services.NewBackgroundService("weights-refresher", refresher.Run))

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("ingest service exited with error")
	}
	logging.Info().Msg("ingest service shut down cleanly")
}
