package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/Prateekshit73/update-zenodo-action/citation"
	"github.com/Prateekshit73/update-zenodo-action/zenodo"
)

// matchConcept scans the remote deposition index for an existing concept
// matching the local metadata. A DOI match anywhere in the index wins over
// any version match: once an archival DOI has been minted it is the
// authoritative identity, while a version string can collide across
// unrelated depositions. Within each pass the first index entry wins.
func matchConcept(meta *citation.Metadata, index []zenodo.Deposition) (string, bool) {
	if meta.DOI != "" {
		for i := range index {
			if index[i].Metadata.DOI == meta.DOI && index[i].ConceptRecID != "" {
				return index[i].ConceptRecID, true
			}
		}
	}
	for i := range index {
		if index[i].Metadata.Version == meta.Version && index[i].ConceptRecID != "" {
			return index[i].ConceptRecID, true
		}
	}
	return "", false
}

// resolve produces the draft deposition the workflow will operate on.
//
// A pinned concept bypasses index matching entirely. Otherwise the live
// deposition listing is scanned for a concept matching the local metadata.
// When a matched concept no longer resolves (withdrawn or deleted remotely),
// the resolver self-heals by falling back to a brand-new deposition; the
// not-found condition never reaches the caller.
func (w *Workflow) resolve(ctx context.Context, meta *citation.Metadata) (*zenodo.Deposition, error) {
	conceptID := w.options.conceptID

	if conceptID == "" {
		index, err := w.archive.ListDepositions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing depositions: %w", err)
		}

		matched, ok := matchConcept(meta, index)
		if !ok {
			if w.options.logger != nil {
				w.options.logger.InfoContext(ctx, "no matching concept, creating deposition",
					"version", meta.Version)
			}
			return w.archive.CreateDeposition(ctx, DepositionMetadata(meta))
		}
		conceptID = matched
	}

	dep, err := w.archive.NewVersion(ctx, conceptID)
	if errors.Is(err, zenodo.ErrNotFound) {
		if w.options.logger != nil {
			w.options.logger.WarnContext(ctx, "concept no longer resolves, creating deposition",
				"concept_id", conceptID)
		}
		return w.archive.CreateDeposition(ctx, DepositionMetadata(meta))
	}
	if err != nil {
		return nil, err
	}
	return dep, nil
}

// DepositionMetadata maps the citation record onto the archive's deposition
// metadata block. Creators are rendered in "family, given" order as the
// archive expects.
func DepositionMetadata(meta *citation.Metadata) zenodo.DepositionMetadata {
	out := zenodo.DepositionMetadata{
		Title:       meta.Title,
		UploadType:  zenodo.UploadTypeSoftware,
		Description: meta.Abstract,
		Version:     meta.Version,
		License:     meta.License,
		Keywords:    meta.Keywords,
		DOI:         meta.DOI,
	}
	for _, a := range meta.Authors {
		out.Creators = append(out.Creators, zenodo.Creator{Name: a.CitedName()})
	}
	if !meta.ReleaseDate.IsZero() {
		out.PublicationDate = meta.ReleaseDate.Format(citation.DateLayout)
	}
	if meta.RepositoryURL != "" {
		out.RelatedIdentifiers = []zenodo.RelatedIdentifier{
			{Identifier: meta.RepositoryURL, Relation: "isSupplementTo"},
		}
	}
	return out
}
