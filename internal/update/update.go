// Package update checks GitHub releases for a newer crondeck version.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// Result is the outcome of a check.
type Result struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	URL     string `json:"url"`

	// Available is true when Latest is a newer semantic version than
	// Current. Development builds never report an update.
	Available bool `json:"available"`

	// DevBuild is true when Current is not a semantic version.
	DevBuild bool `json:"dev_build,omitempty"`
}

// Checker queries the latest release of a repository.
type Checker struct {
	// Repository is "owner/name".
	Repository string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client
}

type release struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// Check fetches the latest release and compares it with current.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	rel, err := c.latest(ctx)
	if err != nil {
		return Result{}, err
	}

	latest, err := semver.NewVersion(rel.TagName)
	if err != nil {
		return Result{}, fmt.Errorf("update: release tag %q is not a version: %w", rel.TagName, err)
	}

	res := Result{
		Current: current,
		Latest:  latest.String(),
		URL:     rel.HTMLURL,
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		res.DevBuild = true
		return res, nil
	}
	res.Available = latest.GreaterThan(cur)
	return res, nil
}

func (c *Checker) latest(ctx context.Context) (release, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimSuffix(base, "/"), c.Repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return release{}, fmt.Errorf("update: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "crondeck")

	resp, err := client.Do(req)
	if err != nil {
		return release{}, fmt.Errorf("update: fetching latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return release{}, fmt.Errorf("update: GitHub returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var rel release
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&rel); err != nil {
		return release{}, fmt.Errorf("update: decoding release: %w", err)
	}
	if rel.Draft || rel.Prerelease {
		return release{}, fmt.Errorf("update: latest release %q is not a stable release", rel.TagName)
	}
	return rel, nil
}
