package detector

import (
	"context"
	"sync"
	"time"

	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// userState bundles a user's baseline with the per-user guard described in
// §5 "Shared resources": baseline reads/writes for one user must not
// interleave-corrupt the histogram, but distinct users never contend.
type userState struct {
	mu       sync.Mutex
	baseline *model.UserBaseline
}

// Detector scores single activities in context and maintains per-user
// baselines. It is total: Detect always returns a score and never returns an
// error (§7 "The detector is total").
type Detector struct {
	usersMu sync.RWMutex
	users   map[string]*userState

	outlierMu sync.Mutex
	outlier   welford

	regressionMu sync.RWMutex
	regression   RegressionWeights
}

// New creates an empty Detector. The regression member starts untrained
// (all-zero weights) until SetRegressionWeights is called by the training
// scheduler.
func New() *Detector {
	return &Detector{users: make(map[string]*userState)}
}

// SetRegressionWeights installs trainer-recomputed weights for the
// regression ensemble member (§4.5 "Daily snapshot", §9 open question 1's
// sibling training loop).
func (d *Detector) SetRegressionWeights(w RegressionWeights) {
	d.regressionMu.Lock()
	defer d.regressionMu.Unlock()
	d.regression = w
}

func (d *Detector) regressionWeights() RegressionWeights {
	d.regressionMu.RLock()
	defer d.regressionMu.RUnlock()
	return d.regression
}

// Result is the outcome of scoring one activity.
type Result struct {
	IsAnomaly   bool
	MLScore     float64
	Explanation string
	Fingerprint string
}

// Detect scores activity against its trailing context and the user's
// baseline, updating the baseline as a side effect (§4.4). recent must be
// the trailing one-hour context capped at 100 events, as fetched by the
// ingest service (§4.3).
func (d *Detector) Detect(activity model.Activity, recent []model.Activity) Result {
	start := time.Now()
	defer func() {
		metrics.DetectorScoreDuration.Observe(time.Since(start).Seconds())
	}()

	state := d.userState(activity.UserID)

	state.mu.Lock()
	baseline := state.baseline
	f := extractFeatures(activity, recent, baseline, start)
	updateBaseline(baseline, activity, start)
	state.mu.Unlock()

	vec := f.vector()

	d.outlierMu.Lock()
	outlierScore, flagged := d.outlier.score(vec)
	d.outlier.update(vec)
	d.outlierMu.Unlock()

	regScore, untrained := scoreRegression(d.regressionWeights(), vec)
	ensemble := ensembleScore(outlierScore, regScore, untrained)
	boosted := applyPatternBoost(ensemble, activity, recent)

	isAnomaly := boosted >= 0.30 || flagged

	result := Result{
		IsAnomaly:   isAnomaly,
		MLScore:     boosted,
		Explanation: explain(activity, f, boosted),
		Fingerprint: Fingerprint(activity),
	}

	metrics.DetectorScoreValue.Observe(boosted)
	logging.Ctx(context.Background()).Debug().
		Str("user_id", activity.UserID).
		Float64("ml_score", boosted).
		Bool("is_anomaly", isAnomaly).
		Msg("scored activity")

	return result
}

func (d *Detector) userState(userID string) *userState {
	d.usersMu.RLock()
	state, ok := d.users[userID]
	d.usersMu.RUnlock()
	if ok {
		return state
	}

	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	if state, ok := d.users[userID]; ok {
		return state
	}
	state = &userState{baseline: model.NewUserBaseline(userID)}
	d.users[userID] = state
	return state
}

// Baseline returns a snapshot copy of the user's current baseline, for
// diagnostics and the ITS engine's own feature summaries. Returns nil if the
// user has not been observed yet.
func (d *Detector) Baseline(userID string) *model.UserBaseline {
	d.usersMu.RLock()
	state, ok := d.users[userID]
	d.usersMu.RUnlock()
	if !ok {
		return nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	cp := *state.baseline
	return &cp
}
