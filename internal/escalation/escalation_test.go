package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestRiskBandForEventUsesIndependentThresholdLadders pins §4.3 step 6's two
// OR'd threshold sets: its=55 alone clears the "high" its bar (>=50) even
// though ml_score=0.3 falls well under the "high" ml bar (>=0.60), and a
// single shared ladder on its/100 would wrongly return medium here.
func TestRiskBandForEventUsesIndependentThresholdLadders(t *testing.T) {
	assert.Equal(t, model.RiskHigh, riskBandForEvent(0.3, 55))
	assert.Equal(t, model.RiskMedium, riskBandForEvent(0.1, 35))
	assert.Equal(t, model.RiskCritical, riskBandForEvent(0.2, 70))
	assert.Equal(t, model.RiskLow, riskBandForEvent(0.1, 10))
	assert.Equal(t, model.RiskHigh, riskBandForEvent(0.65, 0))
	assert.Equal(t, model.RiskCritical, riskBandForEvent(0.85, 0))
}

func TestProcessNewAlertUsesCompositeRiskBand(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutUser(ctx, model.User{ID: "U001", Username: "U001", Role: "Developer"}))

	e := New(store, DefaultThresholds())
	outcome, err := e.Process(ctx, ScoredEvent{
		UserID:      "U001",
		Fingerprint: "fp-1",
		MLScore:     0.3,
		ITSScore:    55,
		Now:         time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Alert)
	assert.Equal(t, model.RiskHigh, outcome.Alert.RiskLevel)
}
