package detector

import "math"

// welford maintains a streaming mean/variance per feature dimension
// (Welford's online algorithm), forming the unsupervised outlier scorer
// (§4.4). It replaces a batch-fit model: every scored event also updates
// the running statistics, so the scorer adapts continuously without a
// separate training pass.
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
		delta2 := v - w.mean[i]
		w.m2[i] += delta * delta2
	}
}

func (w *welford) stddev(i int) float64 {
	if w.count < 2 {
		return 0
	}
	variance := w.m2[i] / float64(w.count-1)
	return math.Sqrt(variance)
}

// score returns a [0,1]-normalized outlier score (mean absolute z-score
// across dimensions, squashed through a logistic function) and whether the
// point independently trips the outlier flag (any single dimension beyond
// 3 standard deviations, mirroring an isolation-forest's -1 prediction).
func (w *welford) score(x [featureCount]float64) (normalized float64, flagged bool) {
	if w.count < 2 {
		return 0, false
	}

	var sumAbsZ float64
	for i, v := range x {
		sd := w.stddev(i)
		if sd == 0 {
			continue
		}
		z := (v - w.mean[i]) / sd
		if math.Abs(z) > 3 {
			flagged = true
		}
		sumAbsZ += math.Abs(z)
	}
	meanAbsZ := sumAbsZ / featureCount

	// Logistic squashing centered on a mean |z| of 1.5 (which maps to 0.5);
	// the 0.30 alert threshold corresponds to a mean |z| of about 0.65.
	normalized = 1 / (1 + math.Exp(-(meanAbsZ-1.5)))
	return clip01(normalized), flagged
}

// RegressionWeights holds the trainer-supplied, fixed-weight linear
// combination used as the ensemble's regression member. All-zero Weights
// together with a zero Bias means "untrained": scoreRegression then reports
// untrained=true and
// the caller falls back to the outlier score alone (§4.4, §9).
type RegressionWeights struct {
	Weights [featureCount]float64
	Bias    float64
}

// scoreRegression applies a fixed-weight linear combination followed by a
// logistic squash, returning untrained=true when no weights have been
// configured.
func scoreRegression(w RegressionWeights, x [featureCount]float64) (score float64, untrained bool) {
	var dot float64
	var anyWeight bool
	for i, v := range x {
		if w.Weights[i] != 0 {
			anyWeight = true
		}
		dot += w.Weights[i] * v
	}
	if !anyWeight && w.Bias == 0 {
		return 0, true
	}
	logit := dot + w.Bias
	return clip01(1 / (1 + math.Exp(-logit))), false
}

// ensembleScore combines the outlier and regression members per §4.4:
// 0.6*outlier + 0.4*regression, falling back to outlier alone when the
// regression member is untrained.
func ensembleScore(outlier float64, reg float64, regUntrained bool) float64 {
	if regUntrained {
		return outlier
	}
	return 0.6*outlier + 0.4*reg
}
