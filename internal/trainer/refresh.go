package trainer

import (
	"context"
	"time"

	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

// refreshInterval governs how often a serving process reloads weights a
// separate training scheduler process may have saved since it last looked.
const refreshInterval = 5 * time.Minute

// WeightsRefresher periodically installs the most recently trained weights
// into a serving process's detector and ITS engine, decoupling "who trains"
// from "who scores" across the two binaries (§4.5, §9 open question 1).
type WeightsRefresher struct {
	store    *storage.Store
	detector *detector.Detector
	its      *its.Engine
}

func NewWeightsRefresher(store *storage.Store, det *detector.Detector, itsEngine *its.Engine) *WeightsRefresher {
	return &WeightsRefresher{store: store, detector: det, its: itsEngine}
}

// Run loads whatever weights are already on disk immediately, then
// continues polling every refreshInterval until ctx is canceled.
func (r *WeightsRefresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *WeightsRefresher) refresh(ctx context.Context) {
	var regWeights detector.RegressionWeights
	if found, err := r.store.LoadTrainedWeights(ctx, storage.WeightNameDetectorRegression, &regWeights); err != nil {
		logging.Warn().Err(err).Msg("failed to load detector weights")
	} else if found {
		r.detector.SetRegressionWeights(regWeights)
	}

	var ensembleWeights its.EnsembleWeights
	if found, err := r.store.LoadTrainedWeights(ctx, storage.WeightNameITSEnsemble, &ensembleWeights); err != nil {
		logging.Warn().Err(err).Msg("failed to load its weights")
	} else if found {
		r.its.SetWeights(ensembleWeights)
	}
}
