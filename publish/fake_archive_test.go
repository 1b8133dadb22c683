package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Prateekshit73/update-zenodo-action/zenodo"
)

// fakeArchive is an in-memory stand-in for the archive API. It models the
// behavior the workflow depends on: drafts inherit the prior version's
// files, an open draft is reused by the newversion action, and published
// depositions reject a second publish.
type fakeArchive struct {
	depositions map[int64]*zenodo.Deposition
	files       map[int64][]zenodo.File
	order       []int64

	nextID     int64
	nextFileID int

	// calls records every operation in invocation order, e.g.
	// "NewVersion:500" or "UploadFile:601:lib-1.2.0.tar.gz".
	calls []string

	// failOn maps an operation name to an error injected on its next call.
	failOn map[string]error

	// newVersionReturnsLatest models a service whose newversion response
	// carries no draft link, handing back the published record itself.
	newVersionReturnsLatest bool
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		depositions: make(map[int64]*zenodo.Deposition),
		files:       make(map[int64][]zenodo.File),
		nextID:      600,
		failOn:      make(map[string]error),
	}
}

// addDeposition seeds a remote deposition and returns it.
func (f *fakeArchive) addDeposition(dep zenodo.Deposition) *zenodo.Deposition {
	d := dep
	f.depositions[d.ID] = &d
	f.order = append(f.order, d.ID)
	return &d
}

// addFile seeds a file on a deposition.
func (f *fakeArchive) addFile(id int64, filename string) {
	f.nextFileID++
	f.files[id] = append(f.files[id], zenodo.File{
		ID:       "f" + strconv.Itoa(f.nextFileID),
		Filename: filename,
	})
}

func (f *fakeArchive) record(call string) error {
	f.calls = append(f.calls, call)
	if err, ok := f.failOn[call]; ok {
		delete(f.failOn, call)
		return err
	}
	return nil
}

func (f *fakeArchive) ListDepositions(ctx context.Context) ([]zenodo.Deposition, error) {
	if err := f.record("ListDepositions"); err != nil {
		return nil, err
	}
	var out []zenodo.Deposition
	for _, id := range f.order {
		out = append(out, *f.depositions[id])
	}
	return out, nil
}

func (f *fakeArchive) CreateDeposition(ctx context.Context, meta zenodo.DepositionMetadata) (*zenodo.Deposition, error) {
	if err := f.record("CreateDeposition"); err != nil {
		return nil, err
	}
	f.nextID++
	dep := zenodo.Deposition{
		ID:           f.nextID,
		ConceptRecID: strconv.FormatInt(f.nextID-1, 10),
		State:        zenodo.StateUnsubmitted,
		Metadata:     meta,
	}
	return f.addDeposition(dep), nil
}

func (f *fakeArchive) NewVersion(ctx context.Context, conceptID string) (*zenodo.Deposition, error) {
	if err := f.record("NewVersion:" + conceptID); err != nil {
		return nil, err
	}

	var latest *zenodo.Deposition
	for _, id := range f.order {
		if f.depositions[id].ConceptRecID == conceptID {
			latest = f.depositions[id]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("concept %s: %w", conceptID, zenodo.ErrNotFound)
	}

	// An open draft is reused; otherwise a fresh draft inherits the
	// published version's files.
	if !latest.Published() || f.newVersionReturnsLatest {
		return latest, nil
	}
	f.nextID++
	draft := zenodo.Deposition{
		ID:           f.nextID,
		ConceptRecID: conceptID,
		State:        zenodo.StateInProgress,
		Metadata:     latest.Metadata,
	}
	f.files[draft.ID] = append([]zenodo.File(nil), f.files[latest.ID]...)
	return f.addDeposition(draft), nil
}

func (f *fakeArchive) ListFiles(ctx context.Context, id int64) ([]zenodo.File, error) {
	if err := f.record("ListFiles:" + strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	return append([]zenodo.File(nil), f.files[id]...), nil
}

func (f *fakeArchive) DeleteFile(ctx context.Context, id int64, fileID string) error {
	if err := f.record("DeleteFile:" + strconv.FormatInt(id, 10) + ":" + fileID); err != nil {
		return err
	}
	var kept []zenodo.File
	for _, file := range f.files[id] {
		if file.ID != fileID {
			kept = append(kept, file)
		}
	}
	f.files[id] = kept
	return nil
}

func (f *fakeArchive) UploadFile(ctx context.Context, id int64, localPath, name string) error {
	if name == "" {
		name = filepath.Base(localPath)
	}
	if err := f.record("UploadFile:" + strconv.FormatInt(id, 10) + ":" + name); err != nil {
		return err
	}
	f.addFile(id, name)
	return nil
}

func (f *fakeArchive) UpdateMetadata(ctx context.Context, id int64, meta zenodo.DepositionMetadata) error {
	if err := f.record("UpdateMetadata:" + strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	dep, ok := f.depositions[id]
	if !ok {
		return fmt.Errorf("deposition %d: %w", id, zenodo.ErrNotFound)
	}
	dep.Metadata = meta
	return nil
}

func (f *fakeArchive) Publish(ctx context.Context, id int64) (*zenodo.Deposition, error) {
	if err := f.record("Publish:" + strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	dep, ok := f.depositions[id]
	if !ok {
		return nil, fmt.Errorf("deposition %d: %w", id, zenodo.ErrNotFound)
	}
	if dep.Published() {
		return nil, fmt.Errorf("deposition %d: %w", id, zenodo.ErrAlreadyPublished)
	}
	dep.State = zenodo.StateDone
	dep.Submitted = true
	return dep, nil
}
