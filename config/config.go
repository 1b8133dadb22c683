// Package config defines the process configuration for a workflow run.
// The configuration is assembled once by the CLI from flags, environment and
// an optional config file, validated, and passed into workflow construction
// as an immutable value. There is no ambient state.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when the configuration cannot drive a workflow run.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of recognized options.
type Config struct {
	// Token authenticates to the archive API. Required.
	Token string `mapstructure:"token"`

	// MetadataPath locates the citation metadata source.
	MetadataPath string `mapstructure:"metadata"`

	// Files are the artifacts to attach: local paths or download URLs.
	Files []string `mapstructure:"files"`

	// ConceptID pins a known concept instead of auto-resolving.
	ConceptID string `mapstructure:"concept"`

	// Sandbox selects the sandbox archive host instead of production.
	Sandbox bool `mapstructure:"sandbox"`

	// TokenInQuery authenticates via the access_token query parameter.
	TokenInQuery bool `mapstructure:"token_in_query"`

	// Publish executes the final publish step; when false the workflow
	// stops at draft.
	Publish bool `mapstructure:"publish"`

	// Repo is the owner/name slug for latest-release resolution on the
	// hosting platform. Optional.
	Repo string `mapstructure:"repo"`

	// GitDir is a local clone whose tags resolve the release version when
	// no network lookup is wanted. Optional.
	GitDir string `mapstructure:"git_dir"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
}

// Defaults returns the configuration defaults applied before flag, env and
// file values.
func Defaults() Config {
	return Config{
		MetadataPath: "CITATION.cff",
		Publish:      true,
	}
}

// Validate checks that the configuration can drive a workflow run.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalid)
	}
	if c.MetadataPath == "" {
		return fmt.Errorf("%w: metadata path is required", ErrInvalid)
	}
	if len(c.Files) == 0 {
		return fmt.Errorf("%w: at least one artifact is required", ErrInvalid)
	}
	if c.Repo != "" {
		if _, _, err := c.SplitRepo(); err != nil {
			return err
		}
	}
	return nil
}

// SplitRepo splits the owner/name slug.
func (c Config) SplitRepo() (owner, name string, err error) {
	owner, name, ok := strings.Cut(c.Repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("%w: repo must be owner/name, got %q", ErrInvalid, c.Repo)
	}
	return owner, name, nil
}
