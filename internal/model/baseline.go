package model

import "time"

// UserBaseline is the detector's in-memory, per-user empirical distribution.
// It is never persisted: on restart it rebuilds from observed traffic (§3,
// §5 "Shared resources").
type UserBaseline struct {
	UserID string

	// HourHistogram counts observed events per local hour of day, 0..23.
	HourHistogram [24]int

	// KindCounts tracks total observations per activity kind, used to derive
	// the per-kind frequency mix.
	KindCounts map[ActivityKind]int

	// TotalEvents is the sum of HourHistogram, tracked separately so
	// typical-hours recomputation can trigger at the 100-entry threshold.
	TotalEvents int

	// TypicalHours holds the top-12-by-count hours once TotalEvents exceeds
	// 100; empty before that point.
	TypicalHours []int

	// RecentSequence is a small ring of the last 10 activity kinds observed,
	// used by the temporal-anomaly feature.
	RecentSequence []ActivityKind

	// TypicalSequences is a small set of recent-activity-kind sequences seen
	// often enough to be considered "normal" for this user.
	TypicalSequences map[string]int

	LastEventAt time.Time
}

// NewUserBaseline creates an empty baseline, lazily instantiated on first
// observation of a user.
func NewUserBaseline(userID string) *UserBaseline {
	return &UserBaseline{
		UserID:           userID,
		KindCounts:       make(map[ActivityKind]int),
		TypicalSequences: make(map[string]int),
	}
}

// FrequencyAt returns the observed proportion of all events occurring at
// hour.
func (b *UserBaseline) FrequencyAt(hour int) float64 {
	if b.TotalEvents == 0 {
		return 0
	}
	return float64(b.HourHistogram[hour%24]) / float64(b.TotalEvents)
}

// PeakFrequency returns the highest per-hour frequency observed.
func (b *UserBaseline) PeakFrequency() float64 {
	peak := 0
	for _, c := range b.HourHistogram {
		if c > peak {
			peak = c
		}
	}
	if b.TotalEvents == 0 || peak == 0 {
		return 0
	}
	return float64(peak) / float64(b.TotalEvents)
}

// IsTypicalHour reports whether hour is among the current TypicalHours set.
func (b *UserBaseline) IsTypicalHour(hour int) bool {
	for _, h := range b.TypicalHours {
		if h == hour%24 {
			return true
		}
	}
	return false
}

// KindFrequency returns kind's share of all observed events.
func (b *UserBaseline) KindFrequency(kind ActivityKind) float64 {
	if b.TotalEvents == 0 {
		return 0
	}
	return float64(b.KindCounts[kind]) / float64(b.TotalEvents)
}
