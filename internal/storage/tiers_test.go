package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/model"
)

func TestCreateAlertThenGetOpenAlertByFingerprint(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")

	now := time.Now().UTC()
	alert := &model.AnomalyAlert{
		UserID:          "U001",
		Fingerprint:     "fp-1",
		MLScore:         0.42,
		RiskLevel:       model.RiskMedium,
		Anomalies:       []string{"off_hours_logon"},
		Explanation:     "off hours access",
		Status:          model.AlertStatusNew,
		Timestamp:       now,
		SuppressedUntil: now.Add(24 * time.Hour),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, s.CreateAlert(ctx, alert))
	require.NotEmpty(t, alert.ID)

	open, err := s.GetOpenAlertByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, alert.ID, open.ID)
	assert.Equal(t, []string{"off_hours_logon"}, open.Anomalies)
}

func TestRefreshAlertUpdatesScoreAndKeepsFingerprint(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")

	now := time.Now().UTC()
	alert := &model.AnomalyAlert{
		UserID: "U001", Fingerprint: "fp-2", MLScore: 0.31, RiskLevel: model.RiskMedium,
		Status: model.AlertStatusNew, Timestamp: now, SuppressedUntil: now.Add(24 * time.Hour),
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateAlert(ctx, alert))

	later := now.Add(time.Hour)
	require.NoError(t, s.RefreshAlert(ctx, alert.ID, 0.81, model.RiskCritical, "escalated pattern", later))

	refreshed, err := s.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.81, refreshed.MLScore, 1e-9)
	assert.Equal(t, model.RiskCritical, refreshed.RiskLevel)
}

func TestMarkAlertEscalatedSetsTerminalStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")

	now := time.Now().UTC()
	alert := &model.AnomalyAlert{
		UserID: "U001", Fingerprint: "fp-3", MLScore: 0.95, RiskLevel: model.RiskCritical,
		Status: model.AlertStatusNew, Timestamp: now, SuppressedUntil: now.Add(24 * time.Hour),
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateAlert(ctx, alert))
	require.NoError(t, s.MarkAlertEscalated(ctx, alert.ID))

	refreshed, err := s.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusEscalated, refreshed.Status)
}

func TestIncidentDedupWithinWindowUpdatesInPlace(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")

	now := time.Now().UTC()
	incident := &model.Incident{
		UserID: "U001", Fingerprint: "fp-4", Type: model.IncidentInsiderAttack,
		Severity: model.RiskCritical, ITSScore: 70, Status: model.TierStatusOpen,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateIncident(ctx, incident))

	since := now.Add(-2 * time.Hour)
	existing, err := s.GetOpenIncidentForUserSince(ctx, "U001", since)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, incident.ID, existing.ID)

	later := now.Add(30 * time.Minute)
	require.NoError(t, s.UpdateIncident(ctx, incident.ID, 82, model.RiskCritical, later))

	updated, err := s.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	assert.InDelta(t, 82, updated.ITSScore, 1e-9)
}

func TestParseIncidentReferenceAcceptsAllThreeForms(t *testing.T) {
	for _, ref := range []string{"1", "00001", "INC00001"} {
		seq, err := ParseIncidentReference(ref)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)
	}
}

func TestFormatIncidentReferenceRoundTrips(t *testing.T) {
	ref := FormatIncidentReference(7)
	assert.Equal(t, "INC00007", ref)
	seq, err := ParseIncidentReference(ref)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}
