package detector

import (
	"sort"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// typicalHoursThreshold is the hour-histogram size at which typical hours
// get (re)computed (§4.4 "Baseline update").
const typicalHoursThreshold = 100

// typicalHoursTop is the number of top hours retained as "typical".
const typicalHoursTop = 12

// maxRecentSequence bounds the ring of recent kinds used for the
// temporal-anomaly feature and for learning typical sequences.
const maxRecentSequence = 10

// typicalSequenceThreshold is the observation count at which a recent
// sequence is promoted into the baseline's set of typical sequences.
const typicalSequenceThreshold = 3

// updateBaseline advances baseline with the newly observed activity: hour
// histogram, per-kind frequency, typical-hours recomputation, and the
// recent-sequence/typical-sequences bookkeeping used by the temporal-anomaly
// feature. Every event increments these counters (§4.4).
func updateBaseline(baseline *model.UserBaseline, activity model.Activity, now time.Time) {
	hour := activity.ActivityHour
	if hour < 0 || hour > 23 {
		hour = now.Hour()
	}

	baseline.HourHistogram[hour]++
	baseline.KindCounts[activity.Kind]++
	baseline.TotalEvents++
	baseline.LastEventAt = now

	if baseline.TotalEvents > typicalHoursThreshold {
		baseline.TypicalHours = topHours(baseline.HourHistogram, typicalHoursTop)
	}

	baseline.RecentSequence = append(baseline.RecentSequence, activity.Kind)
	if len(baseline.RecentSequence) > maxRecentSequence {
		baseline.RecentSequence = baseline.RecentSequence[len(baseline.RecentSequence)-maxRecentSequence:]
	}
	if len(baseline.RecentSequence) == maxRecentSequence {
		key := sequenceKey(sequenceAsActivities(baseline.RecentSequence))
		baseline.TypicalSequences[key]++
	}
}

// sequenceAsActivities adapts a []ActivityKind back into the shape
// sequenceKey expects, avoiding a second implementation of the join logic.
func sequenceAsActivities(kinds []model.ActivityKind) []model.Activity {
	out := make([]model.Activity, len(kinds))
	for i, k := range kinds {
		out[i] = model.Activity{Kind: k}
	}
	return out
}

func topHours(histogram [24]int, n int) []int {
	type hourCount struct {
		hour  int
		count int
	}
	all := make([]hourCount, 24)
	for h, c := range histogram {
		all[h] = hourCount{hour: h, count: c}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].hour < all[j].hour
	})
	if n > len(all) {
		n = len(all)
	}
	top := make([]int, n)
	for i := 0; i < n; i++ {
		top[i] = all[i].hour
	}
	return top
}
