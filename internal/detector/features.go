// Package detector implements the ML Anomaly Detector (§4.4): per-event
// feature extraction, an outlier + regression ensemble, a pattern-boost
// stage, and per-user adaptive baselines.
package detector

import (
	"math"
	"strings"
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
)

const featureCount = 13

// suspiciousKeywords is the process-observer's known-suspicious set (§4.1)
// plus "remote", used here for the process_suspicious_score feature.
var suspiciousKeywords = []string{
	"tor", "vpn", "ssh", "ftp", "nmap", "wireshark", "metasploit", "burp", "sqlmap", "remote",
}

func hasSuspiciousKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// features is the 13-dimension feature vector described in §4.4, in the
// field order vector() emits.
type features struct {
	fileSizeMB           float64
	fileCount            float64
	sensitiveFileCount   float64
	deleteCount          float64
	dataTransferMB       float64
	externalConnections  float64
	emailAttachmentMB    float64
	externalEmails       float64
	offHoursScore        float64
	processSuspiciousScore float64
	rapidActivityScore   float64
	patternDeviationScore float64
	temporalAnomalyScore float64
}

func (f features) vector() [featureCount]float64 {
	return [featureCount]float64{
		f.fileSizeMB, f.fileCount, f.sensitiveFileCount, f.deleteCount,
		f.dataTransferMB, f.externalConnections, f.emailAttachmentMB,
		f.externalEmails, f.offHoursScore, f.processSuspiciousScore,
		f.rapidActivityScore, f.patternDeviationScore, f.temporalAnomalyScore,
	}
}

// extractFeatures builds the feature vector for activity given its trailing
// context (capped at 100 recent events per §4.3) and the user's current
// baseline. now is injected for testability.
func extractFeatures(activity model.Activity, recent []model.Activity, baseline *model.UserBaseline, now time.Time) features {
	var f features

	switch activity.Kind {
	case model.KindFileAccess:
		if d := activity.Details.FileAccess; d != nil {
			f.fileSizeMB = d.SizeMB
			if d.Sensitive {
				f.sensitiveFileCount++ // the current event also counts
			}
			if d.Action == "delete" {
				f.deleteCount++
			}
		}
	case model.KindEmail:
		if d := activity.Details.Email; d != nil {
			f.emailAttachmentMB = d.AttachmentSizeMB
			f.dataTransferMB = d.AttachmentSizeMB
		}
	case model.KindNetwork:
		if d := activity.Details.Network; d != nil {
			f.externalConnections = float64(d.ExternalConnections)
			if d.SentMB > f.dataTransferMB {
				f.dataTransferMB = d.SentMB
			}
		}
	}

	var fileCount, sensitiveCount, deleteCount, externalEmails float64
	for _, a := range recent {
		switch a.Kind {
		case model.KindFileAccess:
			fileCount++
			if d := a.Details.FileAccess; d != nil {
				if d.Sensitive {
					sensitiveCount++
				}
				if d.Action == "delete" {
					deleteCount++
				}
				if f.fileSizeMB == 0 {
					f.fileSizeMB += d.SizeMB
				}
			}
		case model.KindEmail:
			if d := a.Details.Email; d != nil && d.External {
				externalEmails++
			}
		}
	}
	f.fileCount = fileCount
	f.sensitiveFileCount += sensitiveCount
	f.deleteCount += deleteCount
	f.externalEmails = externalEmails

	f.offHoursScore = offHoursScore(baseline, activity.ActivityHour, activity.OffHours)
	f.processSuspiciousScore = processSuspiciousScore(activity)
	f.rapidActivityScore = rapidActivityScore(baseline, recent, activity.Kind, now)
	f.patternDeviationScore = patternDeviationScore(baseline, activity.Kind, recent)
	f.temporalAnomalyScore = temporalAnomalyScore(baseline, recent)

	return f
}

// offHoursScore implements §4.4's off-hours scoring rule.
func offHoursScore(baseline *model.UserBaseline, hour int, flaggedOffHours bool) float64 {
	isOffHours := flaggedOffHours || model.IsOffHours(hour)
	if !isOffHours {
		return 0
	}
	if baseline == nil || baseline.TotalEvents == 0 {
		return 0.8
	}
	if baseline.IsTypicalHour(hour) {
		return 0.3
	}
	peak := baseline.PeakFrequency()
	if peak == 0 {
		return 0.8
	}
	deviation := 1 - (baseline.FrequencyAt(hour) / peak)
	if deviation > 1 {
		deviation = 1
	}
	return deviation
}

func processSuspiciousScore(activity model.Activity) float64 {
	if d := activity.Details.Process; d != nil {
		if d.Suspicious || hasSuspiciousKeyword(d.Name) {
			return 1
		}
	}
	return 0
}

// rapidActivityScore is the clipped z-score of the 5-minute count of events
// of the same kind against the user's per-kind mean rate.
func rapidActivityScore(baseline *model.UserBaseline, recent []model.Activity, kind model.ActivityKind, now time.Time) float64 {
	if baseline == nil || baseline.TotalEvents == 0 {
		return 0
	}
	avgRate := baseline.KindFrequency(kind) * float64(baseline.TotalEvents)
	if avgRate <= 0 {
		return 0
	}

	cutoff := now.Add(-5 * time.Minute)
	var recentCount float64
	for _, a := range recent {
		if a.Kind == kind && a.Timestamp.After(cutoff) {
			recentCount++
		}
	}

	z := (recentCount - avgRate) / (math.Sqrt(avgRate) + 1)
	score := z / 3.0
	return clip01(score)
}

// patternDeviationScore measures how far the current kind's frequency in the
// recent context deviates from the user's baseline kind frequency.
func patternDeviationScore(baseline *model.UserBaseline, kind model.ActivityKind, recent []model.Activity) float64 {
	if baseline == nil || baseline.TotalEvents == 0 {
		return 0
	}
	typicalFreq := baseline.KindFrequency(kind)
	if typicalFreq == 0 {
		typicalFreq = 0.1
	}

	total := len(recent)
	if total == 0 {
		return 0
	}
	var kindCount float64
	for _, a := range recent {
		if a.Kind == kind {
			kindCount++
		}
	}
	currentFreq := kindCount / float64(total)

	denom := typicalFreq
	if denom < 0.1 {
		denom = 0.1
	}
	deviation := abs(currentFreq-typicalFreq) / denom
	return clip01(deviation)
}

// temporalAnomalyScore flags an unusual last-10-event sequence against the
// user's learned typical sequences.
func temporalAnomalyScore(baseline *model.UserBaseline, recent []model.Activity) float64 {
	if baseline == nil || baseline.TotalEvents == 0 || len(baseline.TypicalSequences) == 0 {
		return 0
	}

	n := len(recent)
	if n == 0 {
		return 0
	}
	start := 0
	if n > 10 {
		start = n - 10
	}
	seq := sequenceKey(recent[start:])
	if count, ok := baseline.TypicalSequences[seq]; ok && count >= typicalSequenceThreshold {
		return 0
	}
	return 0.6
}

func sequenceKey(activities []model.Activity) string {
	var sb strings.Builder
	for i, a := range activities {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(a.Kind))
	}
	return sb.String()
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
