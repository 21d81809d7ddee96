package detector

import "github.com/ashgrover/insiderwatch/internal/model"

// LabeledActivity pairs a historical activity and its trailing context with
// whether it was ultimately linked to a resolved insider-attack incident,
// the label the training scheduler derives from closed casework (§4.5, §9
// open question 1).
type LabeledActivity struct {
	Activity model.Activity
	Recent   []model.Activity
	Label    bool
}

// featureVector extracts the feature vector for a historical activity
// using the user's current baseline. Training therefore fits against
// "baseline as it stands today" rather than the baseline's historical
// state at event time — the same approximation online learning already
// makes everywhere else in this package, and cheap since it avoids
// replaying baseline history just to train.
func (d *Detector) featureVector(activity model.Activity, recent []model.Activity) [featureCount]float64 {
	state := d.userState(activity.UserID)
	state.mu.Lock()
	baseline := state.baseline
	state.mu.Unlock()
	return extractFeatures(activity, recent, baseline, activity.Timestamp).vector()
}

// Train recomputes the regression ensemble member by logistic-regression
// gradient descent over labeled historical activities.
func (d *Detector) Train(examples []LabeledActivity) RegressionWeights {
	var w RegressionWeights
	if len(examples) == 0 {
		return w
	}

	const epochs = 200
	const lr = 0.1
	const l2 = 0.001
	n := float64(len(examples))

	for epoch := 0; epoch < epochs; epoch++ {
		var gradW [featureCount]float64
		var gradB float64

		for _, ex := range examples {
			x := d.featureVector(ex.Activity, ex.Recent)
			pred, _ := scoreRegression(w, x)
			y := 0.0
			if ex.Label {
				y = 1.0
			}
			diff := pred - y
			for i, v := range x {
				gradW[i] += diff * v
			}
			gradB += diff
		}

		for i := range w.Weights {
			w.Weights[i] -= lr * (gradW[i]/n + l2*w.Weights[i])
		}
		w.Bias -= lr * gradB / n
	}
	return w
}
