package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ashgrover/insiderwatch/internal/detector"
	"github.com/ashgrover/insiderwatch/internal/escalation"
	"github.com/ashgrover/insiderwatch/internal/its"
	"github.com/ashgrover/insiderwatch/internal/metrics"
	"github.com/ashgrover/insiderwatch/internal/model"
	"github.com/ashgrover/insiderwatch/internal/storage"
)

const (
	// detectorContextWindow/Cap bound the trailing context handed to the
	// detector (§4.3 step 3: "trailing one-hour context ... capped at 100").
	detectorContextWindow = time.Hour
	detectorContextCap    = 100

	// itsWindowCap is a generous ceiling on how many of the trailing 7 days'
	// activities feed the ITS engine's window summary; no spec invariant
	// bounds this count, it exists only to keep one request's query bounded.
	itsWindowCap = 5000

	// itsFallbackCount is the baseline-floor fallback size (§4.5 "most
	// recent 20 historical events").
	itsFallbackCount = 20
)

// Service wires the persistence, detector, ITS and escalation layers into
// the single ingest operation described by §4.3.
type Service struct {
	store      *storage.Store
	detector   *detector.Detector
	its        *its.Engine
	escalation *escalation.Engine
	thresholds escalation.Thresholds
}

// NewService constructs a Service bound to the given components.
func NewService(store *storage.Store, det *detector.Detector, itsEngine *its.Engine, thresholds escalation.Thresholds) *Service {
	return &Service{
		store:      store,
		detector:   det,
		its:        itsEngine,
		escalation: escalation.New(store, thresholds),
		thresholds: thresholds,
	}
}

// IngestOutcome is the result of one IngestActivity call.
type IngestOutcome struct {
	Status   string
	ITSScore float64
	Alert    *model.AnomalyAlert
}

// IngestActivity runs the full §4.3 operation: validate user, persist once,
// detect, then either route through escalation or update the user's ITS.
func (s *Service) IngestActivity(ctx context.Context, activity model.Activity) (*IngestOutcome, error) {
	user, err := s.store.GetUser(ctx, activity.UserID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		metrics.IngestRejectedTotal.WithLabelValues("unknown_user").Inc()
		return nil, &storage.UnknownUserError{UserID: activity.UserID}
	}

	now := activity.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if err := s.store.CreateActivity(ctx, &activity); err != nil {
		return nil, fmt.Errorf("persisting activity: %w", err)
	}
	metrics.ActivitiesIngestedTotal.WithLabelValues(string(activity.Kind)).Inc()

	recentCtx, err := s.store.RecentActivities(ctx, activity.UserID, now.Add(-detectorContextWindow), detectorContextCap)
	if err != nil {
		return nil, fmt.Errorf("fetching detector context: %w", err)
	}

	result := s.detector.Detect(activity, recentCtx)

	if result.IsAnomaly && result.MLScore >= s.thresholds.AlertFromML {
		itsResult, _, err := s.computeITS(ctx, user.Role, activity.UserID, now)
		if err != nil {
			return nil, err
		}

		outcome, err := s.escalation.Process(ctx, escalation.ScoredEvent{
			UserID:      activity.UserID,
			Fingerprint: result.Fingerprint,
			MLScore:     result.MLScore,
			Explanation: result.Explanation,
			ITSScore:    itsResult.Score,
			Now:         now,
		})
		if err != nil {
			return nil, fmt.Errorf("processing escalation: %w", err)
		}

		return &IngestOutcome{Status: outcome.Status, ITSScore: outcome.ITSScore, Alert: outcome.Alert}, nil
	}

	itsResult, activityCount, err := s.computeITS(ctx, user.Role, activity.UserID, now)
	if err != nil {
		return nil, err
	}

	alertCount := 0
	if prev, err := s.store.LatestITSSnapshot(ctx, activity.UserID); err == nil && prev != nil {
		alertCount = prev.AlertCount
	}

	if err := s.store.UpsertITSSnapshot(ctx, model.HistoricalITSSnapshot{
		UserID:        activity.UserID,
		Day:           now,
		Score:         itsResult.Score,
		RiskLevel:     itsResult.RiskBand,
		AlertCount:    alertCount,
		ActivityCount: activityCount,
	}); err != nil {
		return nil, fmt.Errorf("updating daily snapshot: %w", err)
	}

	return &IngestOutcome{Status: "ok", ITSScore: itsResult.Score}, nil
}

// HistoricalITS returns a user's trailing n-day ITS series, computing and
// persisting any missing daily snapshots before returning (§4.7, §9 "Historical
// snapshots are recomputed on read when missing"). Existing rows are trusted
// as-is; only days with no row get a fresh computeITS pass.
func (s *Service) HistoricalITS(ctx context.Context, userID string, days int) ([]model.HistoricalITSSnapshot, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, &storage.UnknownUserError{UserID: userID}
	}

	existing, err := s.store.HistoricalITS(ctx, userID, days)
	if err != nil {
		return nil, fmt.Errorf("fetching its history: %w", err)
	}
	haveDay := make(map[time.Time]model.HistoricalITSSnapshot, len(existing))
	for _, snap := range existing {
		haveDay[dayKey(snap.Day)] = snap
	}

	today := dayKey(time.Now().UTC())
	alertCount := 0
	for d := today.AddDate(0, 0, -(days - 1)); !d.After(today); d = d.AddDate(0, 0, 1) {
		if snap, ok := haveDay[d]; ok {
			alertCount = snap.AlertCount
			continue
		}

		dayEnd := d.AddDate(0, 0, 1)
		itsResult, activityCount, err := s.computeITS(ctx, user.Role, userID, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("backfilling its snapshot for %s: %w", d.Format("2006-01-02"), err)
		}

		snap := model.HistoricalITSSnapshot{
			UserID:        userID,
			Day:           d,
			Score:         itsResult.Score,
			RiskLevel:     itsResult.RiskBand,
			AlertCount:    alertCount,
			ActivityCount: activityCount,
		}
		if err := s.store.UpsertITSSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("persisting backfilled snapshot for %s: %w", d.Format("2006-01-02"), err)
		}
		haveDay[d] = snap
	}

	backfilled, err := s.store.HistoricalITS(ctx, userID, days)
	if err != nil {
		return nil, fmt.Errorf("re-fetching its history after backfill: %w", err)
	}
	return backfilled, nil
}

// dayKey normalizes t to midnight UTC for use as a map key, matching the
// granularity storage.Store keys its_snapshots rows on.
func dayKey(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// computeITS gathers the 7-day window (falling back to the most recent 20
// historical events when the window is empty) and scores it (§4.5),
// returning the activity count actually summarized for the daily snapshot.
func (s *Service) computeITS(ctx context.Context, role, userID string, now time.Time) (its.Result, int, error) {
	window, err := s.store.RecentActivities(ctx, userID, now.Add(-its.Window), itsWindowCap)
	if err != nil {
		return its.Result{}, 0, fmt.Errorf("fetching its window: %w", err)
	}

	var fallback []model.Activity
	if len(window) == 0 {
		fallback, err = s.store.MostRecentActivities(ctx, userID, itsFallbackCount)
		if err != nil {
			return its.Result{}, 0, fmt.Errorf("fetching its fallback: %w", err)
		}
	}

	result := s.its.Compute(role, window, fallback, now)
	count := len(window)
	if count == 0 {
		count = len(fallback)
	}
	return result, count, nil
}
