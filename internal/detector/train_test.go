package detector

import (
	"testing"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/stretchr/testify/assert"
)

func fileDeleteActivity(userID string, hour int) model.Activity {
	return model.Activity{
		UserID:       userID,
		Timestamp:    time.Date(2024, 6, 3, hour, 0, 0, 0, time.UTC),
		ActivityHour: hour,
		OffHours:     model.IsOffHours(hour),
		Kind:         model.KindFileAccess,
		Details: model.ActivityDetails{
			FileAccess: &model.FileAccessDetails{SizeMB: 5, Sensitive: true, Action: "delete"},
		},
	}
}

func TestTrainProducesNonZeroWeights(t *testing.T) {
	d := New()
	var examples []LabeledActivity
	for i := 0; i < 20; i++ {
		examples = append(examples, LabeledActivity{Activity: fileDeleteActivity("U100", 2), Label: true})
		examples = append(examples, LabeledActivity{Activity: emailActivity("U100", false, 1, 0, 14), Label: false})
	}

	weights := d.Train(examples)

	nonZero := false
	for _, w := range weights.Weights {
		if w != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "expected training to move at least one weight away from zero")
}

func TestTrainEmptyExamplesReturnsZeroWeights(t *testing.T) {
	d := New()
	weights := d.Train(nil)
	assert.Equal(t, RegressionWeights{}, weights)
}

func TestTrainSeparatesPositiveAndNegativeScores(t *testing.T) {
	d := New()
	var examples []LabeledActivity
	for i := 0; i < 30; i++ {
		examples = append(examples, LabeledActivity{Activity: fileDeleteActivity("U200", 2), Label: true})
		examples = append(examples, LabeledActivity{Activity: emailActivity("U200", false, 1, 0, 14), Label: false})
	}
	weights := d.Train(examples)

	positiveVec := d.featureVector(fileDeleteActivity("U200", 2), nil)
	negativeVec := d.featureVector(emailActivity("U200", false, 1, 0, 14), nil)

	positiveScore, _ := scoreRegression(weights, positiveVec)
	negativeScore, _ := scoreRegression(weights, negativeVec)

	assert.Greater(t, positiveScore, negativeScore)
}
