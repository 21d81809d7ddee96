// Package its implements the ITS Engine (§4.5): a 7-day windowed feature
// summary, a weighted ensemble score, a low-activity baseline floor, and
// anomaly tagging.
package its

import (
	"time"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// Window is the trailing period the ITS engine summarizes over.
const Window = 7 * 24 * time.Hour

// roleEncoding assigns a small stable integer per known role, mirroring the
// training pipeline's label-encoded role feature. Unknown roles encode to 0.
var roleEncoding = map[string]int{
	"developer": 1,
	"hr":        2,
	"finance":   3,
	"manager":   4,
	"sales":     5,
}

// RoleEncoded returns the small integer encoding for role (case-insensitive).
func RoleEncoded(role string) int {
	return roleEncoding[normalizeRole(role)]
}

func normalizeRole(role string) string {
	out := make([]byte, 0, len(role))
	for i := 0; i < len(role); i++ {
		c := role[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// WindowSummary is the set of features summarized over a user's window of
// activity (§4.5).
type WindowSummary struct {
	RoleEncoded int

	MeanLogonHour float64

	LogonCount            int
	FileAccesses          int
	SensitiveAccesses     int
	DownloadedMB          float64
	Emails                int
	ExternalEmails        int
	LargeAttachments      int
	SuspiciousKeywordHits int
	GeoAnomalyCount       int

	ActivityCount      int
	MostRecentActivity time.Time
}

// FileToEmailRatio returns files/(emails+1).
func (w WindowSummary) FileToEmailRatio() float64 {
	return float64(w.FileAccesses) / float64(w.Emails+1)
}

// ExternalEmailRatio returns external/(total emails+1).
func (w WindowSummary) ExternalEmailRatio() float64 {
	return float64(w.ExternalEmails) / float64(w.Emails+1)
}

// SensitiveFileRatio returns sensitive/(total file accesses+1).
func (w WindowSummary) SensitiveFileRatio() float64 {
	return float64(w.SensitiveAccesses) / float64(w.FileAccesses+1)
}

// OffHours reports whether the mean logon hour falls in the off-hours band.
func (w WindowSummary) OffHours() bool {
	return model.IsOffHours(int(w.MeanLogonHour))
}

// Summarize aggregates a slice of activities (already role-tagged via role)
// into a WindowSummary. Callers pass the activities belonging to the 7-day
// window (or, per the baseline-floor fallback, the most recent 20 historical
// events) — Summarize itself performs no windowing.
func Summarize(role string, activities []model.Activity) WindowSummary {
	w := WindowSummary{RoleEncoded: RoleEncoded(role)}
	if len(activities) == 0 {
		return w
	}

	var logonHourSum float64
	var logonHourCount int

	for _, a := range activities {
		w.ActivityCount++
		if a.Timestamp.After(w.MostRecentActivity) {
			w.MostRecentActivity = a.Timestamp
		}

		switch a.Kind {
		case model.KindLogon:
			w.LogonCount++
			logonHourSum += float64(a.ActivityHour)
			logonHourCount++
			if d := a.Details.Logon; d != nil && d.GeoAnomaly {
				w.GeoAnomalyCount++
			}
		case model.KindFileAccess:
			w.FileAccesses++
			if d := a.Details.FileAccess; d != nil {
				if d.Sensitive {
					w.SensitiveAccesses++
				}
				w.DownloadedMB += d.SizeMB
			}
		case model.KindEmail:
			w.Emails++
			if d := a.Details.Email; d != nil {
				if d.External {
					w.ExternalEmails++
				}
				if d.AttachmentSizeMB > 10 {
					w.LargeAttachments++
				}
				w.SuspiciousKeywordHits += d.SuspiciousKeywords
			}
		case model.KindProcess:
			if d := a.Details.Process; d != nil && (d.Suspicious || hasSuspiciousKeyword(d.Name)) {
				w.SuspiciousKeywordHits++
			}
		}
	}

	if logonHourCount > 0 {
		w.MeanLogonHour = logonHourSum / float64(logonHourCount)
	}

	return w
}

func hasSuspiciousKeyword(name string) bool {
	for _, kw := range []string{"tor", "vpn", "ssh", "ftp", "nmap", "wireshark", "metasploit", "burp", "sqlmap"} {
		if containsFold(name, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	sl, subl := normalizeRole(s), normalizeRole(substr)
	return len(sl) >= len(subl) && indexOf(sl, subl) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
