// Package trainer implements the periodic training scheduler (§4.5, §9 open
// question 1): it recomputes the detector's regression weights and the ITS
// engine's ensemble weights from closed casework and saves them to the
// store.
package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/logging"
	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

const (
	// negativeSamplesPerUser bounds how many of a non-incident user's recent
	// activities are drawn as negative examples per cycle, keeping one noisy
	// user from dominating the training set.
	negativeSamplesPerUser = 5

	maxIncidents = 500
)

// Scheduler periodically recomputes the detector's and ITS engine's
// trained weights from resolved incidents and the general activity
// population.
type Scheduler struct {
	store    *storage.Store
	detector *detector.Detector
	its      *its.Engine

	cycleInterval time.Duration
}

func NewScheduler(store *storage.Store, det *detector.Detector, itsEngine *its.Engine, cycleInterval time.Duration) *Scheduler {
	return &Scheduler{store: store, detector: det, its: itsEngine, cycleInterval: cycleInterval}
}

// Run blocks, running one training cycle immediately and then on every
// tick of cycleInterval, until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.RunCycle(ctx); err != nil {
		logging.Error().Err(err).Msg("initial training cycle failed")
	}

	ticker := time.NewTicker(s.cycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				logging.Error().Err(err).Msg("training cycle failed")
			}
		}
	}
}

// RunCycle builds a labeled training set from resolved incidents (positive)
// and the broader user population (negative), then refits and installs new
// weights for both the detector and the ITS engine.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	start := time.Now()

	incidents, err := s.store.ListIncidents(ctx, string(model.TierStatusResolved), maxIncidents)
	if err != nil {
		return fmt.Errorf("trainer: listing resolved incidents: %w", err)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("trainer: listing users: %w", err)
	}
	roleByUser := make(map[string]string, len(users))
	for _, u := range users {
		roleByUser[u.ID] = u.Role
	}

	insiderAttackUsers := make(map[string]bool)
	var detectorExamples []detector.LabeledActivity
	for _, inc := range incidents {
		if inc.Type != model.IncidentInsiderAttack {
			continue
		}
		insiderAttackUsers[inc.UserID] = true

		recent, err := s.store.RecentActivities(ctx, inc.UserID, inc.CreatedAt.Add(-time.Hour), 100)
		if err != nil || len(recent) == 0 {
			continue
		}
		anchor := recent[len(recent)-1]
		detectorExamples = append(detectorExamples, detector.LabeledActivity{
			Activity: anchor,
			Recent:   recent[:len(recent)-1],
			Label:    true,
		})
	}

	var itsExamples []its.TrainingExample
	for userID := range insiderAttackUsers {
		window, err := s.store.RecentActivities(ctx, userID, start.Add(-its.Window), 5000)
		if err != nil || len(window) == 0 {
			continue
		}
		itsExamples = append(itsExamples, its.TrainingExample{
			Summary: its.Summarize(roleByUser[userID], window),
			Label:   true,
		})
	}

	for _, u := range users {
		if insiderAttackUsers[u.ID] {
			continue
		}
		recent, err := s.store.MostRecentActivities(ctx, u.ID, negativeSamplesPerUser)
		if err != nil || len(recent) == 0 {
			continue
		}
		for i, a := range recent {
			detectorExamples = append(detectorExamples, detector.LabeledActivity{
				Activity: a,
				Recent:   recent[:i],
				Label:    false,
			})
		}

		window, err := s.store.RecentActivities(ctx, u.ID, start.Add(-its.Window), 5000)
		if err != nil || len(window) == 0 {
			continue
		}
		itsExamples = append(itsExamples, its.TrainingExample{
			Summary: its.Summarize(u.Role, window),
			Label:   false,
		})
	}

	if len(detectorExamples) > 0 {
		weights := s.detector.Train(detectorExamples)
		s.detector.SetRegressionWeights(weights)
		if err := s.store.SaveTrainedWeights(ctx, storage.WeightNameDetectorRegression, weights); err != nil {
			logging.Error().Err(err).Msg("failed to persist detector weights")
		}
	}
	if len(itsExamples) > 0 {
		weights := its.Train(itsExamples)
		s.its.SetWeights(weights)
		if err := s.store.SaveTrainedWeights(ctx, storage.WeightNameITSEnsemble, weights); err != nil {
			logging.Error().Err(err).Msg("failed to persist its weights")
		}
	}

	logging.Info().
		Int("detector_examples", len(detectorExamples)).
		Int("its_examples", len(itsExamples)).
		Dur("elapsed", time.Since(start)).
		Msg("training cycle complete")
	return nil
}
