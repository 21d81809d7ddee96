package its

import "math"

// featureCount is the dimensionality of the vector fed to the weighted
// ensemble: role, mean logon hour, 9 raw counts/sums, 3 derived ratios, and
// the off-hours flag.
const featureCount = 15

func vectorize(w WindowSummary) [featureCount]float64 {
	offHours := 0.0
	if w.OffHours() {
		offHours = 1
	}
	return [featureCount]float64{
		float64(w.RoleEncoded),
		w.MeanLogonHour,
		float64(w.LogonCount),
		float64(w.FileAccesses),
		float64(w.SensitiveAccesses),
		w.DownloadedMB,
		float64(w.Emails),
		float64(w.ExternalEmails),
		float64(w.LargeAttachments),
		float64(w.SuspiciousKeywordHits),
		float64(w.GeoAnomalyCount),
		w.FileToEmailRatio(),
		w.ExternalEmailRatio(),
		w.SensitiveFileRatio(),
		offHours,
	}
}

// ClassifierWeights is a fixed-weight linear scorer standing in for one of
// the ensemble's trained classifiers: the trainer recomputes Weights/Bias
// periodically (§4.5, §9's train-scheduler coupling); an all-zero value
// means untrained, and the classifier contributes 0 until trained.
type ClassifierWeights struct {
	Weights [featureCount]float64
	Bias    float64
}

func (c ClassifierWeights) score(x [featureCount]float64) float64 {
	var dot float64
	for i, v := range x {
		dot += c.Weights[i] * v
	}
	logit := dot + c.Bias
	return 1 / (1 + math.Exp(-logit))
}

// EnsembleWeights bundles the three members combined by §4.5: a
// gradient-boosted classifier (weight 0.5), a random-forest classifier
// (weight 0.3), and an outlier score (weight 0.2) carried separately via the
// Engine's running statistics.
type EnsembleWeights struct {
	GradientBoosted ClassifierWeights
	RandomForest    ClassifierWeights
}

const (
	weightGradientBoosted = 0.5
	weightRandomForest    = 0.3
	weightOutlier         = 0.2
)

func combine(gbm, rf, outlier float64) float64 {
	return weightGradientBoosted*gbm + weightRandomForest*rf + weightOutlier*outlier
}
