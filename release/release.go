// Package release resolves a project's latest tagged release and its
// downloadable artifacts from the hosting platform, and normalizes release
// tags to plain version strings.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultAPIBaseURL is the hosting platform's REST endpoint.
const DefaultAPIBaseURL = "https://api.github.com"

// ErrNoRelease is returned when the repository has no published release.
var ErrNoRelease = errors.New("no published release")

// ErrInvalidTag is returned when a release tag does not normalize to a
// semantic version.
var ErrInvalidTag = errors.New("tag is not a semantic version")

// Asset is one downloadable artifact of a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size,omitempty"`
}

// Release is a published, tagged release of the project.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`

	// Version is the normalized form of TagName with any leading "v"
	// stripped. Populated by Latest.
	Version string `json:"-"`
}

// Asset returns the named asset of the release, if present.
func (r *Release) Asset(name string) (*Asset, bool) {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i], true
		}
	}
	return nil, false
}

// Latest fetches the latest published release of owner/repo.
// No authentication is required for public repositories.
func (c *Client) Latest(ctx context.Context, owner, repo string) (*Release, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.options.apiBaseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.options.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s/%s: %w", owner, repo, ErrNoRelease)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching latest release: status %d: %s", resp.StatusCode, excerpt(body))
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}

	rel.Version, err = NormalizeTag(rel.TagName)
	if err != nil {
		return nil, err
	}

	if c.options.logger != nil {
		c.options.logger.InfoContext(ctx, "resolved latest release",
			"repo", owner+"/"+repo,
			"tag", rel.TagName,
			"version", rel.Version,
			"assets", len(rel.Assets))
	}
	return &rel, nil
}

// NormalizeTag strips a leading "v" from a release tag and validates the
// remainder as a semantic version. The stripped form is returned verbatim,
// preserving pre-release and build suffixes.
func NormalizeTag(tag string) (string, error) {
	stripped := strings.TrimPrefix(strings.TrimSpace(tag), "v")
	if _, err := semver.StrictNewVersion(stripped); err != nil {
		return "", fmt.Errorf("%q: %w", tag, ErrInvalidTag)
	}
	return stripped, nil
}
