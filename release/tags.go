package release

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNoTags is returned when a local repository carries no semver tag.
var ErrNoTags = errors.New("no semantic version tags")

// LatestTag resolves the highest semantic version tag of the local clone at
// dir. Tags that do not normalize to a semantic version are skipped. Returns
// the tag name and its normalized version.
//
// This is the offline counterpart of Client.Latest for runs without network
// access to the hosting platform.
func LatestTag(dir string) (tag, version string, err error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", "", fmt.Errorf("opening repository %s: %w", dir, err)
	}

	refs, err := repo.Tags()
	if err != nil {
		return "", "", fmt.Errorf("listing tags: %w", err)
	}

	var best *semver.Version
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		normalized, normErr := NormalizeTag(name)
		if normErr != nil {
			return nil
		}
		parsed, parseErr := semver.StrictNewVersion(normalized)
		if parseErr != nil {
			return nil
		}
		if best == nil || parsed.GreaterThan(best) {
			best = parsed
			tag = name
			version = normalized
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("listing tags: %w", err)
	}
	if best == nil {
		return "", "", fmt.Errorf("%s: %w", dir, ErrNoTags)
	}
	return tag, version, nil
}
