package engine

import (
	"context"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// InitializeJobs resolves dependencies for every job currently in
// Uninitialized, Blocked, or Ready status within workflowID, rejects the
// whole operation with torcerr.InvalidDag if that subgraph contains a
// cycle, bumps run_id, and assigns each job to Ready (in-degree zero) or
// Blocked (otherwise). It is safe to call again after jobs are added to a
// running workflow — already-Submitted/Running/terminal jobs are left
// untouched; of those, only Completed jobs count as satisfying dependents.
func (e *Engine) InitializeJobs(ctx context.Context, workflowID int64) error {
	var (
		newlyReady []int64
		event      domain.Event
		actions    []domain.WorkflowAction
	)

	err := e.store.RunInTx(ctx, func(tx *store.Tx) error {
		wf, err := tx.GetWorkflow(workflowID)
		if err != nil {
			return err
		}
		jobs, err := tx.ListJobs(workflowID)
		if err != nil {
			return err
		}

		eligible := make(map[int64]bool)
		for _, j := range jobs {
			switch j.Status {
			case domain.StatusUninitialized, domain.StatusBlocked, domain.StatusReady:
				eligible[j.ID] = true
			}
		}

		graph := buildGraph(jobs, eligible)
		if cyc := findCycle(graph); cyc != nil {
			return torcerr.NewInvalidDag("workflow %d has a dependency cycle among jobs %v", workflowID, cyc)
		}

		for id, n := range graph {
			newStatus := domain.StatusBlocked
			if n.inDegree == 0 {
				newStatus = domain.StatusReady
				newlyReady = append(newlyReady, id)
			}
			if n.job.Status != newStatus {
				n.job.Status = newStatus
				if err := tx.PutJob(n.job); err != nil {
					return err
				}
			}
		}

		wf.RunID++
		if err := tx.PutWorkflow(wf); err != nil {
			return err
		}

		event, err = tx.AppendEvent(workflowID, domain.EventWorkflowStarted, map[string]any{
			"run_id":       wf.RunID,
			"job_count":    len(jobs),
			"ready_count":  len(newlyReady),
		})
		if err != nil {
			return err
		}

		actions, err = tx.ListWorkflowActions(workflowID, domain.TriggerOnWorkflowStart)
		return err
	})
	if err != nil {
		return err
	}

	if len(newlyReady) > 0 {
		e.notify(workflowID)
	}
	e.publishEvent(ctx, workflowID, event)
	for _, a := range actions {
		e.runAction(ctx, a)
	}
	return nil
}
