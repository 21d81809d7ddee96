package its

import (
	"testing"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/stretchr/testify/assert"
)

func sensitiveAccessActivities(n int) []model.Activity {
	var activities []model.Activity
	for i := 0; i < n; i++ {
		activities = append(activities, model.Activity{
			Kind:    model.KindFileAccess,
			Details: model.ActivityDetails{FileAccess: &model.FileAccessDetails{Sensitive: true, SizeMB: 50}},
		})
	}
	return activities
}

func TestTrainEmptyExamplesReturnsZeroWeights(t *testing.T) {
	weights := Train(nil)
	assert.Equal(t, ClassifierWeights{}, weights.GradientBoosted)
	assert.Equal(t, ClassifierWeights{}, weights.RandomForest)
}

func TestTrainSeparatesHighRiskFromQuietSummaries(t *testing.T) {
	var examples []TrainingExample
	for i := 0; i < 20; i++ {
		examples = append(examples, TrainingExample{
			Summary: Summarize("Developer", sensitiveAccessActivities(20)),
			Label:   true,
		})
		examples = append(examples, TrainingExample{
			Summary: Summarize("Developer", nil),
			Label:   false,
		})
	}

	weights := Train(examples)

	highVec := vectorize(Summarize("Developer", sensitiveAccessActivities(20)))
	lowVec := vectorize(Summarize("Developer", nil))

	assert.Greater(t, weights.GradientBoosted.score(highVec), weights.GradientBoosted.score(lowVec))
	assert.Greater(t, weights.RandomForest.score(highVec), weights.RandomForest.score(lowVec))
}

func TestTrainRandomForestIsMoreRegularizedThanGradientBoosted(t *testing.T) {
	var examples []TrainingExample
	for i := 0; i < 20; i++ {
		examples = append(examples, TrainingExample{Summary: Summarize("Developer", sensitiveAccessActivities(20)), Label: true})
		examples = append(examples, TrainingExample{Summary: Summarize("Developer", nil), Label: false})
	}

	weights := Train(examples)

	var gbMag, rfMag float64
	for i := range weights.GradientBoosted.Weights {
		gbMag += weights.GradientBoosted.Weights[i] * weights.GradientBoosted.Weights[i]
		rfMag += weights.RandomForest.Weights[i] * weights.RandomForest.Weights[i]
	}
	assert.Greater(t, gbMag, rfMag, "heavier l2 penalty should keep RandomForest weights smaller in magnitude")
}
