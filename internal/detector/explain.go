package detector

import (
	"fmt"
	"strings"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// explain renders a human-readable justification for a score, mirroring the
// cue ordering of the original detector's explanation generator.
func explain(activity model.Activity, f features, score float64) string {
	var parts []string

	if f.fileSizeMB > 50 {
		parts = append(parts, fmt.Sprintf("Large file access (%.1fMB)", f.fileSizeMB))
	}
	if f.sensitiveFileCount > 0 {
		parts = append(parts, "Sensitive file access detected")
	}
	if f.deleteCount > 0 {
		parts = append(parts, "File deletion detected")
	}
	if f.dataTransferMB > 50 {
		parts = append(parts, fmt.Sprintf("Large data transfer (%.1fMB)", f.dataTransferMB))
	}
	if f.externalConnections >= 3 {
		parts = append(parts, fmt.Sprintf("Multiple external connections (%d)", int(f.externalConnections)))
	}
	if externalWithLargeAttachment(activity) {
		parts = append(parts, "External email with attachment")
	}
	if suspiciousKeywordCount(activity) > 0 {
		parts = append(parts, "Suspicious keywords in communication")
	}

	offHours := activity.OffHours || model.IsOffHours(activity.ActivityHour)
	if offHours {
		parts = append(parts, fmt.Sprintf("Off-hours activity (%d:00)", activity.ActivityHour))
	}

	if f.processSuspiciousScore > 0.5 {
		if name := processName(activity); name != "" {
			parts = append(parts, fmt.Sprintf("Suspicious process: %s", name))
		} else {
			parts = append(parts, "Suspicious process detected")
		}
	}

	if f.rapidActivityScore > 0.5 {
		parts = append(parts, "Rapid activity pattern detected")
	}
	if f.patternDeviationScore > 0.5 {
		parts = append(parts, "Behavioral pattern deviation")
	}
	if f.temporalAnomalyScore > 0.5 {
		parts = append(parts, "Unusual timing pattern")
	}

	if activity.Kind == model.KindLogon && offHours {
		parts = append(parts, "Unusual login pattern")
	}

	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("ML anomaly detected (%.1f%% confidence)", score*100))
	}

	return strings.Join(parts, "; ")
}

func suspiciousKeywordCount(activity model.Activity) int {
	if d := activity.Details.Email; d != nil {
		return d.SuspiciousKeywords
	}
	return 0
}

func processName(activity model.Activity) string {
	if d := activity.Details.Process; d != nil {
		return d.Name
	}
	return ""
}
