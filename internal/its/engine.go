package its

import (
	"math"
	"sync"
	"time"

	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
)

// welford is the ITS engine's running per-feature mean/variance tracker,
// forming the ensemble's 0.2-weighted outlier member.
type welford struct {
	count int64
	mean  [featureCount]float64
	m2    [featureCount]float64
}

func (w *welford) update(x [featureCount]float64) {
	w.count++
	n := float64(w.count)
	for i, v := range x {
		delta := v - w.mean[i]
		w.mean[i] += delta / n
		w.m2[i] += delta * (v - w.mean[i])
	}
}

func (w *welford) score(x [featureCount]float64) float64 {
	if w.count < 2 {
		return 0
	}
	var sumAbsZ float64
	for i, v := range x {
		variance := w.m2[i] / float64(w.count-1)
		sd := math.Sqrt(variance)
		if sd == 0 {
			continue
		}
		sumAbsZ += math.Abs((v - w.mean[i]) / sd)
	}
	meanAbsZ := sumAbsZ / featureCount
	return clip01(1 / (1 + math.Exp(-(meanAbsZ - 1.5))))
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Engine computes the aggregate 0-100 Insider Threat Score for a user from a
// 7-day windowed feature summary.
type Engine struct {
	mu      sync.Mutex
	outlier welford
	weights EnsembleWeights
}

// New creates an Engine with untrained (all-zero) ensemble weights.
func New() *Engine {
	return &Engine{}
}

// SetWeights installs trainer-recomputed classifier weights (§4.5, §9).
func (e *Engine) SetWeights(w EnsembleWeights) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = w
}

// Result is the ITS engine's output for one scoring invocation.
type Result struct {
	Score    float64
	RiskBand model.RiskBand
	Tags     []string
}

// riskBandForITS buckets a 0-100 score using the spec's risk-band cutoffs
// scaled to the 0-100 range (low<25, medium<50, high<75, critical>=75).
func riskBandForITS(score float64) model.RiskBand {
	switch {
	case score >= 75:
		return model.RiskCritical
	case score >= 50:
		return model.RiskHigh
	case score >= 25:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// Compute scores a user given their windowed activity summary. window holds
// the trailing 7-day activities; fallbackRecent holds up to the most recent
// 20 historical events, used only when window is empty but older activity
// exists (§4.5 "Baseline floor"). now is injected for testability.
func (e *Engine) Compute(role string, window []model.Activity, fallbackRecent []model.Activity, now time.Time) Result {
	if len(window) == 0 && len(fallbackRecent) == 0 {
		return Result{Score: 5, RiskBand: model.RiskLow}
	}

	activities := window
	usingFallback := false
	if len(activities) == 0 {
		activities = fallbackRecent
		usingFallback = true
	}

	summary := Summarize(role, activities)
	vec := vectorize(summary)

	e.mu.Lock()
	outlierScore := e.outlier.score(vec)
	e.outlier.update(vec)
	var untrained ClassifierWeights
	gbm, rf := 0.0, 0.0
	if e.weights.GradientBoosted != untrained {
		gbm = e.weights.GradientBoosted.score(vec)
	}
	if e.weights.RandomForest != untrained {
		rf = e.weights.RandomForest.score(vec)
	}
	e.mu.Unlock()

	raw := combine(gbm, rf, outlierScore) * 100

	score := raw
	if raw < 8 && summary.ActivityCount > 0 && !usingFallback {
		daysSinceRecent := now.Sub(summary.MostRecentActivity).Hours() / 24
		recencyFactor := math.Max(0.5, 1-daysSinceRecent/7)
		floor := math.Min(20, 8+0.2*float64(summary.ActivityCount)*recencyFactor)
		score = math.Max(raw, floor)
	}

	tags := anomalyTags(summary)
	band := riskBandForITS(score)

	metrics.ITSScoreValue.Observe(score)
	return Result{Score: score, RiskBand: band, Tags: tags}
}

// anomalyTags applies the threshold-guarded tags from §4.5.
func anomalyTags(w WindowSummary) []string {
	var tags []string
	if w.OffHours() {
		tags = append(tags, "off_hours_logon")
	}
	if w.GeoAnomalyCount > 0 {
		tags = append(tags, "geographic_anomaly")
	}
	if w.SensitiveAccesses >= 5 {
		tags = append(tags, "high_sensitive_access")
	}
	if w.ExternalEmailRatio() > 0.5 {
		tags = append(tags, "high_external_email_ratio")
	}
	if w.LargeAttachments > 2 {
		tags = append(tags, "multiple_large_attachments")
	}
	if w.SuspiciousKeywordHits > 0 {
		tags = append(tags, "suspicious_keywords")
	}
	if w.DownloadedMB > 500 {
		tags = append(tags, "excessive_download_volume")
	}
	return tags
}
