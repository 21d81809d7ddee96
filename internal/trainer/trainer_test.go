package trainer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

func putUser(t *testing.T, ctx context.Context, s *storage.Store, id, role string) model.User {
	t.Helper()
	u := model.User{ID: id, Username: id, Role: role, Department: "R&D"}
	require.NoError(t, s.PutUser(ctx, u))
	return u
}

func putActivity(t *testing.T, ctx context.Context, s *storage.Store, userID string, sensitive bool, at time.Time) model.Activity {
	t.Helper()
	a := model.Activity{
		UserID:       userID,
		Timestamp:    at,
		ActivityHour: at.Hour(),
		OffHours:     model.IsOffHours(at.Hour()),
		Kind:         model.KindFileAccess,
		Details: model.ActivityDetails{
			FileAccess: &model.FileAccessDetails{SizeMB: 10, Sensitive: sensitive, Action: "delete"},
		},
	}
	require.NoError(t, s.CreateActivity(ctx, &a))
	return a
}

func putResolvedInsiderAttackIncident(t *testing.T, ctx context.Context, s *storage.Store, userID string, createdAt time.Time) {
	t.Helper()
	now := time.Now()
	incident := model.Incident{
		UserID:      userID,
		Fingerprint: userID + "-fp",
		Type:        model.IncidentInsiderAttack,
		Severity:    model.RiskCritical,
		ITSScore:    90,
		Description: "test incident",
		Status:      model.TierStatusResolved,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
		ResolvedAt:  &now,
	}
	require.NoError(t, s.CreateIncident(ctx, &incident))
}

func TestRunCycleTrainsFromResolvedInsiderAttackIncidents(t *testing.T) {
	s, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	putUser(t, ctx, s, "U001", "Developer")
	putUser(t, ctx, s, "U002", "Developer")

	base := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 10; i++ {
		putActivity(t, ctx, s, "U001", true, base.Add(time.Duration(i)*time.Minute))
	}
	putResolvedInsiderAttackIncident(t, ctx, s, "U001", base.Add(9*time.Minute+time.Second))

	for i := 0; i < 5; i++ {
		putActivity(t, ctx, s, "U002", false, base.Add(time.Duration(i)*time.Minute))
	}

	det := detector.New()
	itsEngine := its.New()
	sched := NewScheduler(s, det, itsEngine, time.Hour)

	require.NoError(t, sched.RunCycle(ctx))

	var stored detector.RegressionWeights
	found, err := s.LoadTrainedWeights(ctx, storage.WeightNameDetectorRegression, &stored)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRunCycleWithNoDataIsANoOp(t *testing.T) {
	s, err := storage.OpenInMemory()
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	sched := NewScheduler(s, detector.New(), its.New(), time.Hour)
	assert.NoError(t, sched.RunCycle(ctx))

	_, found, err := loadDetectorWeights(ctx, s)
	require.NoError(t, err)
	assert.False(t, found)
}

func loadDetectorWeights(ctx context.Context, s *storage.Store) (detector.RegressionWeights, bool, error) {
	var w detector.RegressionWeights
	found, err := s.LoadTrainedWeights(ctx, storage.WeightNameDetectorRegression, &w)
	return w, found, err
}
