package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Weights [3]float64
	Bias    float64
}

func TestSaveAndLoadTrainedWeightsRoundTrips(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := samplePayload{Weights: [3]float64{0.1, 0.2, 0.3}, Bias: 0.5}
	require.NoError(t, s.SaveTrainedWeights(ctx, WeightNameDetectorRegression, in))

	var out samplePayload
	found, err := s.LoadTrainedWeights(ctx, WeightNameDetectorRegression, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestLoadTrainedWeightsNotFoundReturnsFalse(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var out samplePayload
	found, err := s.LoadTrainedWeights(ctx, "never-trained", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveTrainedWeightsOverwritesExisting(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrainedWeights(ctx, WeightNameITSEnsemble, samplePayload{Bias: 1}))
	require.NoError(t, s.SaveTrainedWeights(ctx, WeightNameITSEnsemble, samplePayload{Bias: 2}))

	var out samplePayload
	found, err := s.LoadTrainedWeights(ctx, WeightNameITSEnsemble, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2.0, out.Bias)
}
