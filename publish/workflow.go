package publish

import (
	"context"
	"fmt"
	"os"

	"github.com/Prateekshit73/update-zenodo-action/citation"
	"github.com/Prateekshit73/update-zenodo-action/zenodo"
)

// Run executes the publish sequence for one release:
//
//  1. resolve the target draft deposition
//  2. delete every file currently attached (a fresh version inherits the
//     prior version's files; the contract is "exactly the given artifact
//     set, nothing inherited")
//  3. upload the artifacts in the given order
//  4. merge the citation metadata onto the remote record
//  5. publish, unless configured to stop at draft
//
// Any step failing aborts the remaining steps and surfaces the typed error;
// completed steps are not rolled back. The deposition stays in draft until
// step 5 succeeds, so re-invocation resolves the same draft and retries
// from step 2.
func (w *Workflow) Run(ctx context.Context, meta *citation.Metadata, artifacts []Artifact) (*zenodo.Deposition, error) {
	dep, err := w.resolve(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("resolving deposition: %w", err)
	}
	if dep.Published() {
		// Published depositions accept no file or metadata mutation.
		return nil, fmt.Errorf("deposition %d: %w", dep.ID, zenodo.ErrAlreadyPublished)
	}
	if w.options.logger != nil {
		w.options.logger.InfoContext(ctx, "resolved deposition",
			"deposition_id", dep.ID,
			"concept_id", dep.ConceptRecID)
	}

	if err := w.clearFiles(ctx, dep.ID); err != nil {
		return nil, err
	}

	for _, artifact := range artifacts {
		if err := w.archive.UploadFile(ctx, dep.ID, artifact.Path, artifact.Name); err != nil {
			return nil, fmt.Errorf("uploading %s: %w", artifact.Path, err)
		}
		if artifact.Ephemeral {
			// Best-effort cleanup of downloaded artifacts.
			_ = os.Remove(artifact.Path)
		}
	}

	if err := w.archive.UpdateMetadata(ctx, dep.ID, DepositionMetadata(meta)); err != nil {
		return nil, fmt.Errorf("updating metadata: %w", err)
	}

	if w.options.stopAtDraft {
		if w.options.logger != nil {
			w.options.logger.InfoContext(ctx, "stopping at draft", "deposition_id", dep.ID)
		}
		return dep, nil
	}

	published, err := w.archive.Publish(ctx, dep.ID)
	if err != nil {
		return nil, fmt.Errorf("publishing: %w", err)
	}
	return published, nil
}

// clearFiles removes every file attached to the draft so the upload step
// starts from a clean slate. Re-running after a partial upload removes
// exactly the files the prior run attached.
func (w *Workflow) clearFiles(ctx context.Context, id int64) error {
	files, err := w.archive.ListFiles(ctx, id)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	for _, f := range files {
		if err := w.archive.DeleteFile(ctx, id, f.ID); err != nil {
			return fmt.Errorf("deleting stale file %s: %w", f.Filename, err)
		}
	}
	return nil
}
