// Package version compares companion and server versions and checks for
// newer companion releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/kyonru/feather-companion/internal/cache"
)

// Version is the companion version, set at build time with
// -ldflags "-X github.com/kyonru/feather-companion/internal/version.Version=...".
var Version = "0.0.0-dev"

// LatestReleaseURL is the GitHub API endpoint for the newest release.
const LatestReleaseURL = "https://api.github.com/repos/kyonru/feather/releases/latest"

// ReleasesPage is where users download new releases.
const ReleasesPage = "https://github.com/kyonru/feather/releases/latest"

const checkTimeout = 3 * time.Second

// canonical adds the "v" prefix semver expects.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Valid reports whether v is a semantic version, with or without "v".
func Valid(v string) bool {
	return semver.IsValid(canonical(v))
}

// Compare returns -1, 0 or +1 as a is older than, equal to or newer than b.
// A release sorts above its pre-releases. Invalid versions sort below valid ones.
func Compare(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

// IsGreaterOrEqual reports whether a is at least b.
func IsGreaterOrEqual(a, b string) bool {
	return Compare(a, b) >= 0
}

// Mismatch reports whether client and server versions are both known and
// differ in major or minor version.
func Mismatch(client, server string) bool {
	c, s := canonical(client), canonical(server)
	if !semver.IsValid(c) || !semver.IsValid(s) {
		return false
	}
	return semver.MajorMinor(c) != semver.MajorMinor(s)
}

// latestKey is the cache key of the last answer.
const latestKey = "latest"

// LatestChecker queries a release endpoint for the newest version.
type LatestChecker struct {
	URL    string
	Client *http.Client

	// Cache, when set, remembers the answer for TTLUnits of its unit.
	Cache    *cache.Cache
	TTLUnits int
}

// NewLatestChecker returns a checker for the public release endpoint that
// remembers its answer in c for ttlUnits. c may be nil.
func NewLatestChecker(c *cache.Cache, ttlUnits int) *LatestChecker {
	return &LatestChecker{URL: LatestReleaseURL, Client: &http.Client{}, Cache: c, TTLUnits: ttlUnits}
}

// Latest returns the newest released version without its "v" prefix.
func (l *LatestChecker) Latest(ctx context.Context) (string, error) {
	if l.Cache != nil {
		if v, ok := cache.GetAs[string](l.Cache, latestKey); ok {
			return v, nil
		}
	}
	v, err := l.fetch(ctx)
	if err != nil {
		return "", err
	}
	if l.Cache != nil {
		l.Cache.SetTTL(latestKey, v, l.TTLUnits)
	}
	return v, nil
}

func (l *LatestChecker) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return "", fmt.Errorf("version: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("version: fetch latest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version: unexpected status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("version: decode release: %w", err)
	}
	if !Valid(release.TagName) {
		return "", fmt.Errorf("version: invalid tag %q", release.TagName)
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}

// IsLatest reports whether current is at least the newest release.
func (l *LatestChecker) IsLatest(ctx context.Context, current string) (bool, error) {
	latest, err := l.Latest(ctx)
	if err != nil {
		return false, err
	}
	return IsGreaterOrEqual(current, latest), nil
}
