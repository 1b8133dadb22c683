// Package citation loads release metadata from a CITATION.cff file.
// The file is parsed once into an immutable Metadata value; downstream
// consumers never touch the raw record. Loading performs no network I/O.
package citation

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the date format used by the date-released field.
const DateLayout = "2006-01-02"

// Author is a single entry of the citation's author list.
type Author struct {
	GivenName  string
	FamilyName string
}

// DisplayName returns the author in "given family" order.
func (a Author) DisplayName() string {
	return strings.TrimSpace(a.GivenName + " " + a.FamilyName)
}

// CitedName returns the author in "family, given" order, the form expected
// by archival deposition creators lists.
func (a Author) CitedName() string {
	if a.FamilyName == "" {
		return a.GivenName
	}
	if a.GivenName == "" {
		return a.FamilyName
	}
	return a.FamilyName + ", " + a.GivenName
}

// Metadata is the normalized view of the citation record. It is constructed
// once per workflow run and read-only thereafter.
//
// Title, Authors, License and Version are mandatory; their absence fails
// loading with ErrMissingField. The remaining fields are optional.
type Metadata struct {
	Title         string
	Abstract      string
	Authors       []Author
	License       string
	Keywords      []string
	Version       string
	DOI           string
	RepositoryURL string
	ReleaseDate   time.Time
}

// rawCitation mirrors the subset of the CFF schema the tool consumes.
type rawCitation struct {
	Title    string `yaml:"title"`
	Abstract string `yaml:"abstract"`
	Authors  []struct {
		GivenNames  string `yaml:"given-names"`
		FamilyNames string `yaml:"family-names"`
	} `yaml:"authors"`
	License        string   `yaml:"license"`
	Keywords       []string `yaml:"keywords"`
	Version        string   `yaml:"version"`
	DOI            string   `yaml:"doi"`
	RepositoryCode string   `yaml:"repository-code"`
	DateReleased   string   `yaml:"date-released"`
}

// Load reads and parses the citation file at path.
// Returns ErrUnreadable if the file cannot be read, ErrMalformed if it is not
// valid YAML, and ErrMissingField if a mandatory field is absent.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Keep the cause in the chain: missing file and permission denied
		// need different operator action.
		return nil, fmt.Errorf("reading %s: %w: %w", path, ErrUnreadable, err)
	}
	return Parse(data)
}

// Parse parses a citation record from raw bytes. See Load for the error
// contract.
func Parse(data []byte) (*Metadata, error) {
	var raw rawCitation
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, WrapError(ErrMalformed, err.Error())
	}

	meta := &Metadata{
		Title:    strings.TrimSpace(raw.Title),
		Abstract: strings.TrimSpace(raw.Abstract),
		// License identifiers are matched case-insensitively by the archive,
		// which stores them lowercase.
		License:       strings.ToLower(strings.TrimSpace(raw.License)),
		Version:       strings.TrimSpace(raw.Version),
		DOI:           strings.TrimSpace(raw.DOI),
		RepositoryURL: strings.TrimSpace(raw.RepositoryCode),
		Keywords:      dedupe(raw.Keywords),
	}

	for _, a := range raw.Authors {
		author := Author{
			GivenName:  strings.TrimSpace(a.GivenNames),
			FamilyName: strings.TrimSpace(a.FamilyNames),
		}
		if author.GivenName == "" && author.FamilyName == "" {
			continue
		}
		meta.Authors = append(meta.Authors, author)
	}

	if raw.DateReleased != "" {
		released, err := time.Parse(DateLayout, raw.DateReleased)
		if err != nil {
			return nil, WrapErrorf(ErrMalformed, "invalid date-released %q", raw.DateReleased)
		}
		meta.ReleaseDate = released
	}

	if err := meta.validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// validate enforces the mandatory-field invariant.
func (m *Metadata) validate() error {
	switch {
	case m.Title == "":
		return WrapError(ErrMissingField, "title")
	case len(m.Authors) == 0:
		return WrapError(ErrMissingField, "authors")
	case m.License == "":
		return WrapError(ErrMissingField, "license")
	case m.Version == "":
		return WrapError(ErrMissingField, "version")
	}
	return nil
}

// dedupe removes duplicate keywords while preserving first-seen order.
func dedupe(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	var out []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
