package engine

import (
	"context"
	"time"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// CompleteJob records a compute node's reported outcome for jobID, moves it
// to the terminal status the result carries, and propagates the
// consequence to dependents: successful completion (Completed with return
// code 0) unblocks any child whose full dependency set (explicit job deps +
// implicit artifact producer deps) is now satisfied; any other outcome (a
// nonzero return code or another terminal status) recursively cancels
// descendants flagged cancel_on_blocking_job_failure, mirroring
// dag_engine.go's skipChildren recursion but repurposed from "skip" to
// "cancel". If no job in the workflow remains active afterward, a
// WorkflowCompleted event fires and on_workflow_complete actions run.
func (e *Engine) CompleteJob(ctx context.Context, workflowID, jobID int64, result domain.Result) error {
	var (
		newlyReady   []int64
		events       []domain.Event
		completeActs []domain.WorkflowAction
	)

	err := e.store.RunInTx(ctx, func(tx *store.Tx) error {
		job, err := tx.GetJob(workflowID, jobID)
		if err != nil {
			return err
		}
		if job.Status != domain.StatusSubmitted && job.Status != domain.StatusRunning {
			return torcerr.NewInvalidState("job %d is %s, not claimed; cannot complete", jobID, job.Status)
		}

		result.WorkflowID = workflowID
		result.JobID = jobID
		result.AttemptID = job.AttemptID
		if result.CompletionTime.IsZero() {
			result.CompletionTime = time.Now()
		}
		if _, err := tx.AppendResult(result); err != nil {
			return err
		}

		job.Status = result.Status
		if err := tx.PutJob(job); err != nil {
			return err
		}

		jobs, err := tx.ListJobs(workflowID)
		if err != nil {
			return err
		}

		if result.Status == domain.StatusCompleted && result.ReturnCode == 0 {
			ready, err := unblockDependents(tx, jobs, job.ID)
			if err != nil {
				return err
			}
			newlyReady = ready
		} else {
			if err := cascadeCancel(tx, jobs, job.ID); err != nil {
				return err
			}
			// Re-read so the active check below sees the cancellations.
			if jobs, err = tx.ListJobs(workflowID); err != nil {
				return err
			}
		}

		stillActive := len(newlyReady) > 0
		if !stillActive {
			for _, j := range jobs {
				if j.ID == job.ID {
					continue
				}
				if j.Status.IsActive() {
					stillActive = true
					break
				}
			}
		}

		ev, err := tx.AppendEvent(workflowID, jobCompletionCategory(result.Status), map[string]any{
			"job_id":      jobID,
			"status":      string(result.Status),
			"return_code": result.ReturnCode,
		})
		if err != nil {
			return err
		}
		events = append(events, ev)

		if !stillActive {
			wf, err := tx.GetWorkflow(workflowID)
			if err != nil {
				return err
			}
			ev2, err := tx.AppendEvent(workflowID, domain.EventWorkflowCompleted, map[string]any{"run_id": wf.RunID})
			if err != nil {
				return err
			}
			events = append(events, ev2)
			completeActs, err = tx.ListWorkflowActions(workflowID, domain.TriggerOnWorkflowComplete)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(newlyReady) > 0 {
		e.notify(workflowID)
	}
	for _, ev := range events {
		e.publishEvent(ctx, workflowID, ev)
	}
	for _, a := range completeActs {
		e.runAction(ctx, a)
	}
	return nil
}

func jobCompletionCategory(status domain.JobStatus) string {
	return "Job" + string(status)
}

// unblockDependents finds every job depending (explicitly or via an
// artifact edge) on completedJobID and promotes it to Ready once every one
// of its dependencies is satisfied.
func unblockDependents(tx *store.Tx, jobs []domain.Job, completedJobID int64) ([]int64, error) {
	eligible := make(map[int64]bool)
	for _, j := range jobs {
		if j.Status == domain.StatusBlocked || j.Status == domain.StatusUninitialized {
			eligible[j.ID] = true
		}
	}
	graph := buildGraph(jobs, eligible)

	var ready []int64
	for id, n := range graph {
		if n.inDegree == 0 && n.job.Status == domain.StatusBlocked {
			n.job.Status = domain.StatusReady
			if err := tx.PutJob(n.job); err != nil {
				return nil, err
			}
			ready = append(ready, id)
		}
	}
	return ready, nil
}

// cascadeCancel walks the forward closure of failedJobID (explicit deps
// plus artifact producer edges) and cancels every still-pending descendant
// whose CancelOnBlockingJobFailure is set, recursing further from each
// canceled job — the same BFS/recursion shape as dag_engine.go's
// skipChildren, repurposed from "skip" to "cancel".
func cascadeCancel(tx *store.Tx, jobs []domain.Job, failedJobID int64) error {
	byID := make(map[int64]domain.Job, len(jobs))
	children := make(map[int64][]int64)
	for _, j := range jobs {
		byID[j.ID] = j
		for _, dep := range j.DependsOnJobIDs {
			children[dep] = append(children[dep], j.ID)
		}
		for _, fid := range j.InputFileIDs {
			for _, p := range jobs {
				for _, ofid := range p.OutputFileIDs {
					if ofid == fid {
						children[p.ID] = append(children[p.ID], j.ID)
					}
				}
			}
		}
	}

	visited := make(map[int64]bool)
	queue := []int64{failedJobID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, childID := range children[cur] {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			child := byID[childID]
			if !child.CancelOnBlockingJobFailure {
				continue
			}
			if child.Status.IsTerminal() {
				continue
			}
			child.Status = domain.StatusCanceled
			if err := tx.PutJob(child); err != nil {
				return err
			}
			queue = append(queue, childID)
		}
	}
	return nil
}
