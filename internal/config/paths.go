package config

import (
	"os"
)

func userHomeDir() (string, error) {
	return os.UserHomeDir()
}

// filterExisting returns only the paths that exist on disk, preserving order.
func filterExisting(paths []string) []string {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	return existing
}
