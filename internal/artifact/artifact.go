// Package artifact implements spec.md §4.4's existence-predicate queries:
// which input files/user_data a workflow's jobs still need before they can
// run. It never touches the filesystem — existence here means "has some
// job recorded it as an output and that job Completed", matching the
// spec's explicit "does not touch the filesystem" boundary.
package artifact

import (
	"context"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
)

// Resolver answers "which artifacts does this workflow still need"
// queries against internal/store.
type Resolver struct {
	store *store.Store
}

// New builds a Resolver over s.
func New(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// ListRequiredExistingFiles returns every File a job in workflowID lists as
// an input but that is not produced by a Completed job and was not
// supplied externally (i.e. no job at all lists it as an output — an
// externally-provided input file the user is expected to have staged).
// These are the files spec.md §4.4(a) calls "required existing files":
// they gate nothing the engine tracks, but a caller (the CLI, or an
// operator) can use this list to verify staging before submission.
func (r *Resolver) ListRequiredExistingFiles(ctx context.Context, workflowID int64) ([]domain.File, error) {
	jobs, err := r.store.ListJobs(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	files, err := r.store.ListFiles(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	producedBy := producerIndex(jobs, func(j domain.Job) []int64 { return j.OutputFileIDs })
	required := requiredIDs(jobs, func(j domain.Job) []int64 { return j.InputFileIDs }, producedBy)

	byID := make(map[int64]domain.File, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	var out []domain.File
	for id := range required {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// ListRequiredExistingUserData is ListRequiredExistingFiles' counterpart
// for UserData blobs (spec.md §4.4(b)).
func (r *Resolver) ListRequiredExistingUserData(ctx context.Context, workflowID int64) ([]domain.UserData, error) {
	jobs, err := r.store.ListJobs(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	blobs, err := r.store.ListUserData(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	producedBy := producerIndex(jobs, func(j domain.Job) []int64 { return j.OutputUserDataIDs })
	required := requiredIDs(jobs, func(j domain.Job) []int64 { return j.InputUserDataIDs }, producedBy)

	byID := make(map[int64]domain.UserData, len(blobs))
	for _, d := range blobs {
		byID[d.ID] = d
	}
	var out []domain.UserData
	for id := range required {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// producerIndex maps each artifact id some job produces (per outputsOf) to
// that job.
func producerIndex(jobs []domain.Job, outputsOf func(domain.Job) []int64) map[int64]domain.Job {
	idx := make(map[int64]domain.Job)
	for _, j := range jobs {
		for _, id := range outputsOf(j) {
			idx[id] = j
		}
	}
	return idx
}

// requiredIDs returns the set of artifact ids consumed (per inputsOf) by
// some job where either no job produces it, or the producing job hasn't
// Completed — i.e. artifacts whose presence the engine cannot itself
// guarantee and must come from outside the DAG (externally staged) or
// from a completed producer.
func requiredIDs(jobs []domain.Job, inputsOf func(domain.Job) []int64, producedBy map[int64]domain.Job) map[int64]bool {
	out := make(map[int64]bool)
	for _, j := range jobs {
		for _, id := range inputsOf(j) {
			producer, hasProducer := producedBy[id]
			if !hasProducer || producer.Status != domain.StatusCompleted {
				out[id] = true
			}
		}
	}
	return out
}
