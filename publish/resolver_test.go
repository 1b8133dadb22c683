package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Prateekshit73/update-zenodo-action/citation"
	"github.com/Prateekshit73/update-zenodo-action/zenodo"
)

func testMetadata() *citation.Metadata {
	return &citation.Metadata{
		Title:   "Lib 1.2.0",
		Authors: []citation.Author{{GivenName: "Ada", FamilyName: "Lovelace"}},
		License: "mit",
		Version: "1.2.0",
	}
}

// TestMatchConcept tests index matching precedence
func TestMatchConcept(t *testing.T) {
	tests := []struct {
		name        string
		doi         string
		version     string
		index       []zenodo.Deposition
		wantConcept string
		wantMatch   bool
	}{
		{
			name:      "empty index",
			version:   "1.2.0",
			wantMatch: false,
		},
		{
			name:    "doi match",
			doi:     "10.5281/zenodo.1000",
			version: "1.2.0",
			index: []zenodo.Deposition{
				{ID: 501, ConceptRecID: "500", Metadata: zenodo.DepositionMetadata{DOI: "10.5281/zenodo.1000"}},
			},
			wantConcept: "500",
			wantMatch:   true,
		},
		{
			name:    "doi beats an earlier version match",
			doi:     "10.5281/zenodo.1000",
			version: "1.2.0",
			index: []zenodo.Deposition{
				{ID: 301, ConceptRecID: "300", Metadata: zenodo.DepositionMetadata{Version: "1.2.0"}},
				{ID: 501, ConceptRecID: "500", Metadata: zenodo.DepositionMetadata{DOI: "10.5281/zenodo.1000"}},
			},
			wantConcept: "500",
			wantMatch:   true,
		},
		{
			name:    "version match when doi is empty",
			version: "1.2.0",
			index: []zenodo.Deposition{
				{ID: 301, ConceptRecID: "300", Metadata: zenodo.DepositionMetadata{Version: "1.1.0"}},
				{ID: 401, ConceptRecID: "400", Metadata: zenodo.DepositionMetadata{Version: "1.2.0"}},
			},
			wantConcept: "400",
			wantMatch:   true,
		},
		{
			name:    "version fallback when doi matches nothing",
			doi:     "10.5281/zenodo.9999",
			version: "1.2.0",
			index: []zenodo.Deposition{
				{ID: 401, ConceptRecID: "400", Metadata: zenodo.DepositionMetadata{Version: "1.2.0"}},
			},
			wantConcept: "400",
			wantMatch:   true,
		},
		{
			name:    "first index entry wins within a pass",
			version: "1.2.0",
			index: []zenodo.Deposition{
				{ID: 401, ConceptRecID: "400", Metadata: zenodo.DepositionMetadata{Version: "1.2.0"}},
				{ID: 501, ConceptRecID: "500", Metadata: zenodo.DepositionMetadata{Version: "1.2.0"}},
			},
			wantConcept: "400",
			wantMatch:   true,
		},
		{
			name:    "no match",
			version: "2.0.0",
			index: []zenodo.Deposition{
				{ID: 401, ConceptRecID: "400", Metadata: zenodo.DepositionMetadata{Version: "1.2.0"}},
			},
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := testMetadata()
			meta.DOI = tt.doi
			meta.Version = tt.version

			concept, ok := matchConcept(meta, tt.index)
			assert.Equal(t, tt.wantMatch, ok)
			assert.Equal(t, tt.wantConcept, concept)
		})
	}
}

// TestMatchConceptDOIPriority verifies, for arbitrary index layouts, that a
// DOI match is selected regardless of where version-matching entries sit.
func TestMatchConceptDOIPriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		meta := testMetadata()
		meta.DOI = "10.5281/zenodo.1000"

		// Decoy entries: version matches, unrelated DOIs.
		count := rapid.IntRange(0, 8).Draw(t, "decoys")
		var index []zenodo.Deposition
		for i := 0; i < count; i++ {
			index = append(index, zenodo.Deposition{
				ID:           int64(300 + i),
				ConceptRecID: "decoy",
				Metadata: zenodo.DepositionMetadata{
					Version: meta.Version,
					DOI:     rapid.SampledFrom([]string{"", "10.5281/zenodo.42"}).Draw(t, "decoy_doi"),
				},
			})
		}

		// Insert the DOI-matching entry at a random position.
		pos := rapid.IntRange(0, len(index)).Draw(t, "pos")
		entry := zenodo.Deposition{
			ID:           501,
			ConceptRecID: "500",
			Metadata:     zenodo.DepositionMetadata{DOI: meta.DOI},
		}
		index = append(index[:pos:pos], append([]zenodo.Deposition{entry}, index[pos:]...)...)

		concept, ok := matchConcept(meta, index)
		if !ok {
			t.Fatalf("expected a match")
		}
		if concept != "500" {
			t.Fatalf("DOI match must win, got concept %q", concept)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("stale concept falls back to a fresh deposition", func(t *testing.T) {
		archive := newFakeArchive()
		// The index advertises a concept that no longer resolves.
		archive.addDeposition(zenodo.Deposition{
			ID:           501,
			ConceptRecID: "500",
			State:        zenodo.StateDone,
			Submitted:    true,
			Metadata:     zenodo.DepositionMetadata{Version: "1.2.0"},
		})
		archive.failOn["NewVersion:500"] = zenodo.ErrNotFound

		workflow := NewWorkflow(archive)
		dep, err := workflow.resolve(context.Background(), testMetadata())
		require.NoError(t, err, "not-found during version creation must never surface")
		assert.Contains(t, archive.calls, "NewVersion:500")
		assert.Contains(t, archive.calls, "CreateDeposition")
		assert.False(t, dep.Published())
	})

	t.Run("pinned concept skips the listing", func(t *testing.T) {
		archive := newFakeArchive()
		archive.addDeposition(zenodo.Deposition{
			ID:           501,
			ConceptRecID: "500",
			State:        zenodo.StateDone,
			Submitted:    true,
		})

		workflow := NewWorkflow(archive, WithConcept("500"))
		dep, err := workflow.resolve(context.Background(), testMetadata())
		require.NoError(t, err)
		assert.NotContains(t, archive.calls, "ListDepositions")
		assert.Equal(t, "500", dep.ConceptRecID)
	})

	t.Run("pinned stale concept also falls back", func(t *testing.T) {
		archive := newFakeArchive()

		workflow := NewWorkflow(archive, WithConcept("999"))
		dep, err := workflow.resolve(context.Background(), testMetadata())
		require.NoError(t, err)
		assert.Equal(t, []string{"NewVersion:999", "CreateDeposition"}, archive.calls)
		assert.False(t, dep.Published())
	})

	t.Run("listing failure surfaces", func(t *testing.T) {
		archive := newFakeArchive()
		archive.failOn["ListDepositions"] = &zenodo.RequestError{Op: "ListDepositions", StatusCode: 500, Transient: true}

		workflow := NewWorkflow(archive)
		_, err := workflow.resolve(context.Background(), testMetadata())
		require.Error(t, err)
		assert.True(t, zenodo.IsTransient(err))
	})
}

func TestDepositionMetadata(t *testing.T) {
	meta := testMetadata()
	meta.Abstract = "A library."
	meta.Keywords = []string{"holidays", "calendar"}
	meta.DOI = "10.5281/zenodo.1000"
	meta.RepositoryURL = "https://github.com/vacanza/holidays"

	out := DepositionMetadata(meta)
	assert.Equal(t, "Lib 1.2.0", out.Title)
	assert.Equal(t, zenodo.UploadTypeSoftware, out.UploadType)
	assert.Equal(t, "A library.", out.Description)
	assert.Equal(t, []zenodo.Creator{{Name: "Lovelace, Ada"}}, out.Creators)
	assert.Equal(t, "1.2.0", out.Version)
	assert.Equal(t, "mit", out.License)
	assert.Equal(t, "10.5281/zenodo.1000", out.DOI)
	assert.Empty(t, out.PublicationDate, "absent release date stays unset")
	require.Len(t, out.RelatedIdentifiers, 1)
	assert.Equal(t, "https://github.com/vacanza/holidays", out.RelatedIdentifiers[0].Identifier)
}
