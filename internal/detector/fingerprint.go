package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ashgrover/insiderwatch/internal/model"
)

// truncatedPathLen bounds the file path component fed into the fingerprint,
// matching the original detector's truncation so long paths that differ
// only past this length still collapse to the same fingerprint.
const truncatedPathLen = 100

// Fingerprint computes a stable SHA-256 hash over the tuple described in
// §4.4: user id, kind, a truncated file path, process name, "IP" (the
// network observer's external-connection identity), device id, and the
// quaternary anomaly signature {large_file, sensitive, external, off_hours}.
// The hash is deterministic across calls and process restarts for
// semantically identical events.
func Fingerprint(activity model.Activity) string {
	path, process, ip := "", "", ""
	var largeFile, sensitive, external bool

	switch activity.Kind {
	case model.KindFileAccess:
		if d := activity.Details.FileAccess; d != nil {
			path = truncate(d.Path, truncatedPathLen)
			largeFile = d.SizeMB > 50
			sensitive = d.Sensitive
		}
	case model.KindProcess:
		if d := activity.Details.Process; d != nil {
			process = d.Name
		}
	case model.KindNetwork:
		if d := activity.Details.Network; d != nil && d.ExternalConnections > 0 {
			ip = "external"
		}
	case model.KindEmail:
		if d := activity.Details.Email; d != nil {
			external = d.External
		}
	}

	offHours := activity.OffHours || model.IsOffHours(activity.ActivityHour)

	material := fmt.Sprintf(
		"user_id=%s;kind=%s;file_path=%s;process_name=%s;ip=%s;device_id=%s;large_file=%t;sensitive=%t;external=%t;off_hours=%t",
		activity.UserID, activity.Kind, path, process, ip, activity.DeviceID,
		largeFile, sensitive, external, offHours,
	)

	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
