// Package publish orchestrates the versioned-deposition synchronization
// workflow: decide whether to create a new deposition or a new version of an
// existing concept, reconcile the attached file set, merge descriptive
// metadata, and publish.
//
// The workflow is strictly sequential and deliberately non-transactional:
// a failed step aborts the run but leaves completed steps in place. The
// remote deposition stays in draft until the final publish succeeds, so a
// re-invocation resolves the same draft and converges (idempotent resume).
package publish

import (
	"context"
	"log/slog"

	"github.com/Prateekshit73/update-zenodo-action/zenodo"
)

// Archive is the archive-client surface the workflow drives. It is
// implemented by *zenodo.Client and faked in tests.
type Archive interface {
	ListDepositions(ctx context.Context) ([]zenodo.Deposition, error)
	CreateDeposition(ctx context.Context, meta zenodo.DepositionMetadata) (*zenodo.Deposition, error)
	NewVersion(ctx context.Context, conceptID string) (*zenodo.Deposition, error)
	ListFiles(ctx context.Context, id int64) ([]zenodo.File, error)
	DeleteFile(ctx context.Context, id int64, fileID string) error
	UploadFile(ctx context.Context, id int64, localPath, name string) error
	UpdateMetadata(ctx context.Context, id int64, meta zenodo.DepositionMetadata) error
	Publish(ctx context.Context, id int64) (*zenodo.Deposition, error)
}

// Artifact is a file to attach to the deposition.
type Artifact struct {
	// Path is the artifact's location on the local filesystem.
	Path string

	// Name is the display name on the archive. Defaults to the basename
	// of Path.
	Name string

	// Ephemeral marks a file that was downloaded for this run only; it is
	// removed from disk once its upload succeeds.
	Ephemeral bool
}

// Workflow runs the publish sequence against one archive.
type Workflow struct {
	archive Archive
	options *workflowOptions
}

// workflowOptions holds configuration options for the workflow.
type workflowOptions struct {
	logger      *slog.Logger
	conceptID   string
	stopAtDraft bool
}

// WorkflowOption is a functional option for configuring the Workflow.
type WorkflowOption func(*workflowOptions)

// WithLogger configures the workflow with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.logger = logger
	}
}

// WithConcept pins a known concept id. The resolver skips index matching
// and opens a new version of the pinned concept directly, with the usual
// fall-back to a fresh deposition when the concept no longer resolves.
func WithConcept(conceptID string) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.conceptID = conceptID
	}
}

// WithStopAtDraft leaves the deposition in draft state instead of executing
// the final publish step.
func WithStopAtDraft() WorkflowOption {
	return func(opts *workflowOptions) {
		opts.stopAtDraft = true
	}
}

// NewWorkflow creates a publish workflow driving the given archive.
func NewWorkflow(archive Archive, opts ...WorkflowOption) *Workflow {
	options := &workflowOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &Workflow{archive: archive, options: options}
}
