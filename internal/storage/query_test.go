package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/model"
)

func TestDashboardStatsCountsZeroActivityUserAsLowRisk(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")

	require.NoError(t, s.UpsertITSSnapshot(ctx, model.HistoricalITSSnapshot{
		UserID: "U001", Day: time.Now().UTC(), Score: 5, RiskLevel: model.RiskLow,
	}))

	stats, err := s.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 0, stats.ActiveThreats)
	assert.Equal(t, 0, stats.HighRiskUsers)
	assert.InDelta(t, 5, stats.AverageITS, 1e-9)
}

func TestDashboardStatsCountsActiveThreatsAboveFifty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")
	seedUser(t, s, "U002")

	require.NoError(t, s.UpsertITSSnapshot(ctx, model.HistoricalITSSnapshot{
		UserID: "U001", Day: time.Now().UTC(), Score: 72, RiskLevel: model.RiskCritical,
	}))
	require.NoError(t, s.UpsertITSSnapshot(ctx, model.HistoricalITSSnapshot{
		UserID: "U002", Day: time.Now().UTC(), Score: 12, RiskLevel: model.RiskLow,
	}))

	stats, err := s.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveThreats)
	assert.Equal(t, 1, stats.HighRiskUsers)
}
