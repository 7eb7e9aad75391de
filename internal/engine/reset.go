package engine

import (
	"context"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
)

// ResetJobs resets the named jobs to Uninitialized and cascades the reset
// to every downstream job that had reached Completed on the strength of a
// reset job's prior (now-invalidated) output — completion-reversal, in the
// same BFS/recursion shape as cascadeCancel, reversing Completed to
// Uninitialized instead of canceling.
func (e *Engine) ResetJobs(ctx context.Context, workflowID int64, jobIDs []int64) error {
	return e.store.RunInTx(ctx, func(tx *store.Tx) error {
		jobs, err := tx.ListJobs(workflowID)
		if err != nil {
			return err
		}
		return resetCascade(tx, jobs, jobIDs)
	})
}

// ResetFailedJobs resets every job currently in a "failed" status
// (PendingFailed, Canceled, Terminated, or Completed with a nonzero
// return_code — see DESIGN.md's recorded decision on failed_only) back to
// Uninitialized, cascading the reversal downstream. When failedOnly is
// false this is instead a full workflow re-run: every job not already
// Uninitialized — Ready, Blocked, Submitted, Running, or any terminal
// status — becomes a reset root.
func (e *Engine) ResetFailedJobs(ctx context.Context, workflowID int64, failedOnly bool) error {
	return e.store.RunInTx(ctx, func(tx *store.Tx) error {
		jobs, err := tx.ListJobs(workflowID)
		if err != nil {
			return err
		}

		var roots []int64
		for _, j := range jobs {
			if j.Status == domain.StatusUninitialized {
				continue
			}
			if !failedOnly {
				// A full re-run: every job not already Uninitialized is a
				// reset root, including jobs still in flight
				// (Ready/Blocked/Submitted/Running).
				roots = append(roots, j.ID)
				continue
			}
			switch j.Status {
			case domain.StatusPendingFailed, domain.StatusCanceled, domain.StatusTerminated:
				roots = append(roots, j.ID)
			case domain.StatusCompleted:
				results, err := tx.ListResultsForJob(workflowID, j.ID)
				if err != nil {
					return err
				}
				if len(results) > 0 && results[len(results)-1].ReturnCode != 0 {
					roots = append(roots, j.ID)
				}
			}
		}
		return resetCascade(tx, jobs, roots)
	})
}

// resetCascade sets every job in roots to Uninitialized, then BFS-walks
// forward edges (explicit deps + artifact producer edges) resetting any
// Completed descendant to Uninitialized too, since its inputs may now be
// regenerated by a re-run ancestor.
func resetCascade(tx *store.Tx, jobs []domain.Job, roots []int64) error {
	byID := make(map[int64]domain.Job, len(jobs))
	children := make(map[int64][]int64)
	fileProducer := make(map[int64]int64)
	userDataProducer := make(map[int64]int64)
	for _, j := range jobs {
		byID[j.ID] = j
		for _, fid := range j.OutputFileIDs {
			fileProducer[fid] = j.ID
		}
		for _, uid := range j.OutputUserDataIDs {
			userDataProducer[uid] = j.ID
		}
	}
	for _, j := range jobs {
		for _, dep := range j.DependsOnJobIDs {
			children[dep] = append(children[dep], j.ID)
		}
		for _, fid := range j.InputFileIDs {
			if pid, ok := fileProducer[fid]; ok {
				children[pid] = append(children[pid], j.ID)
			}
		}
		for _, uid := range j.InputUserDataIDs {
			if pid, ok := userDataProducer[uid]; ok {
				children[pid] = append(children[pid], j.ID)
			}
		}
	}

	visited := make(map[int64]bool)
	queue := append([]int64{}, roots...)
	for _, id := range roots {
		visited[id] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		job := byID[cur]
		job.Status = domain.StatusUninitialized
		job.AttemptID = 0
		if err := tx.PutJob(job); err != nil {
			return err
		}

		for _, childID := range children[cur] {
			child := byID[childID]
			if child.Status != domain.StatusCompleted {
				continue
			}
			if visited[childID] {
				continue
			}
			visited[childID] = true
			queue = append(queue, childID)
		}
	}
	return nil
}
