// Command trainer runs the long-running training scheduler (§4.5, §9 open
// question 1): it periodically refits the detector's and ITS engine's
// trained weights from closed casework.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashgrover/insiderwatch/internal/config"
	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/storage"
	"github.com/ashgrover/insiderwatch/internal/trainer"
)

func main() {
	cfg, err := config.LoadTrainerConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load trainer configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Dur("cycle_interval", cfg.CycleInterval).Msg("starting insiderwatch training scheduler")

	store, err := storage.Open(cfg.DatabasePath, "UTC")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing storage")
		}
	}()

	sched := trainer.NewScheduler(store, detector.New(), its.New(), cfg.CycleInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("training scheduler exited with error")
	}
	logging.Info().Msg("training scheduler shut down cleanly")
}
