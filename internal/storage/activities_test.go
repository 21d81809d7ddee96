package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrover/insiderwatch/internal/model"
)

func TestCreateActivityRejectsUnknownUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := &model.Activity{UserID: "U999", Timestamp: time.Now(), Kind: model.KindLogon}
	err := s.CreateActivity(ctx, a)
	require.Error(t, err)
	var unknown *UnknownUserError
	assert.ErrorAs(t, err, &unknown)
}

func TestRecentActivitiesReturnsOldestFirstWithinWindow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U001")

	now := time.Now().UTC()
	for i, offset := range []time.Duration{-90 * time.Minute, -30 * time.Minute, -5 * time.Minute} {
		a := &model.Activity{
			UserID:    "U001",
			Timestamp: now.Add(offset),
			Kind:      model.KindFileAccess,
			Details:   model.ActivityDetails{FileAccess: &model.FileAccessDetails{Path: "/tmp/x", SizeMB: float64(i)}},
		}
		require.NoError(t, s.CreateActivity(ctx, a))
	}

	recent, err := s.RecentActivities(ctx, "U001", now.Add(-1*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Timestamp.Before(recent[1].Timestamp))
}

func TestMostRecentActivitiesFallbackOldestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "U002")

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		a := &model.Activity{
			UserID:    "U002",
			Timestamp: now.Add(time.Duration(i) * time.Hour),
			Kind:      model.KindProcess,
			Details:   model.ActivityDetails{Process: &model.ProcessDetails{Name: "x.exe"}},
		}
		require.NoError(t, s.CreateActivity(ctx, a))
	}

	recent, err := s.MostRecentActivities(ctx, "U002", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].Timestamp.Before(recent[2].Timestamp))
}
