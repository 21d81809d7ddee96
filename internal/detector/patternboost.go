package detector

import "github.com/ashgrover/insiderwatch/internal/model"

// maxScore is the clamp applied after the pattern-boost stage (§4.4, §9):
// the detector never reports full confidence, but callers must not treat
// this ceiling as "not an anomaly".
const maxScore = 0.95

// patternBoost implements §4.4's curated additive threat-cue rules. It is a
// documented part of the detector, not a shadow rule layer (§9).
func patternBoost(activity model.Activity, recent []model.Activity) float64 {
	var boost float64

	if fileSizeMB(activity) > 50 || (activity.Details.Email != nil && activity.Details.Email.AttachmentSizeMB > 50) {
		boost += 0.15
	}
	if isSensitive(activity) {
		boost += 0.20
	}
	if externalWithLargeAttachment(activity) {
		boost += 0.25
	}
	if activity.OffHours || model.IsOffHours(activity.ActivityHour) {
		boost += 0.15
	}
	if isSuspiciousProcess(activity) || suspiciousKeywordCount(activity) > 0 {
		boost += 0.20
	}
	if sameKindCount(recent, activity.Kind) >= 10 {
		boost += 0.15
	}

	return boost
}

func fileSizeMB(activity model.Activity) float64 {
	if d := activity.Details.FileAccess; d != nil {
		return d.SizeMB
	}
	return 0
}

func isSensitive(activity model.Activity) bool {
	d := activity.Details.FileAccess
	return d != nil && d.Sensitive
}

func externalWithLargeAttachment(activity model.Activity) bool {
	d := activity.Details.Email
	return d != nil && d.External && d.AttachmentSizeMB > 10
}

func isSuspiciousProcess(activity model.Activity) bool {
	d := activity.Details.Process
	return d != nil && (d.Suspicious || hasSuspiciousKeyword(d.Name))
}

func sameKindCount(recent []model.Activity, kind model.ActivityKind) int {
	n := 0
	for _, a := range recent {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func applyPatternBoost(base float64, activity model.Activity, recent []model.Activity) float64 {
	boosted := base + patternBoost(activity, recent)
	if boosted > maxScore {
		boosted = maxScore
	}
	return boosted
}
