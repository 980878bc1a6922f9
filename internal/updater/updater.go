// Package updater checks GitHub for newer releases of the bridge itself.
//
// The check reuses the bridge's upstream client, so it honours the same
// API endpoint, token and timeout as every tool call. It never replaces
// the running binary; it only reports what is available.
package updater

import (
	"context"
	"strings"
	"time"

	"github.com/HendryAvila/repobridge/internal/github"
	"github.com/HendryAvila/repobridge/internal/logging"
)

const (
	// ReleaseOwner and ReleaseRepo locate the bridge's own releases.
	ReleaseOwner = "HendryAvila"
	ReleaseRepo  = "repobridge"

	// checkTimeout bounds the whole check.
	checkTimeout = 10 * time.Second
)

// UpdateResult is returned by CheckVersion to communicate the outcome.
type UpdateResult struct {
	// CurrentVersion is the running version (e.g. "0.2.0").
	CurrentVersion string
	// LatestVersion is the newest release (e.g. "0.3.0").
	LatestVersion string
	// UpdateAvailable is true when latest > current.
	UpdateAvailable bool
	// ReleaseURL is the GitHub page for the release.
	ReleaseURL string
}

// CheckVersion queries GitHub for the latest release and compares it
// against the current version. Failures are logged at debug level and
// reported as "no update"; this is a best-effort check.
func CheckVersion(ctx context.Context, client *github.Client, currentVersion string) *UpdateResult {
	result := &UpdateResult{
		CurrentVersion: normalizeVersion(currentVersion),
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	tag, htmlURL, err := client.LatestRelease(ctx, ReleaseOwner, ReleaseRepo)
	if err != nil {
		logging.Debug().Err(err).Msg("release check failed")
		return result
	}

	result.LatestVersion = normalizeVersion(tag)
	result.ReleaseURL = htmlURL
	result.UpdateAvailable = isNewer(result.CurrentVersion, result.LatestVersion)

	return result
}

// normalizeVersion strips the leading "v" from version strings.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isNewer returns true if latest is a higher version than current.
// Compares the numeric prefix of each of the three semver parts.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}

	currentParts := strings.Split(current, ".")
	latestParts := strings.Split(latest, ".")

	// Pad to 3 parts
	for len(currentParts) < 3 {
		currentParts = append(currentParts, "0")
	}
	for len(latestParts) < 3 {
		latestParts = append(latestParts, "0")
	}

	for i := 0; i < 3; i++ {
		c := parseIntSafe(currentParts[i])
		l := parseIntSafe(latestParts[i])
		if l > c {
			return true
		}
		if l < c {
			return false
		}
	}

	return false
}

// parseIntSafe converts a string to int, returning 0 on error.
func parseIntSafe(s string) int {
	n := 0
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			n = n*10 + int(ch-'0')
		} else {
			break
		}
	}
	return n
}
