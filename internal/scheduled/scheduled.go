// Package scheduled tracks the lifecycle of external batch-scheduler
// allocations (ScheduledComputeNode) and periodically reconciles them.
//
// Grounded in services/orchestrator/scheduler.go's Scheduler: a
// cron.Cron-driven reconciliation loop survives, repurposed from "trigger
// a workflow on a cron expression" (out of torc's scope — torc doesn't
// execute anything) to "periodically re-read allocation state from the
// store and log a summary", which is the shape spec.md's
// HasPendingOrActiveAllocations polling predicate needs underneath it.
package scheduled

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/store"
)

// DefaultSweepInterval is used when the caller doesn't override it
// (TORC_SWEEP_INTERVAL).
const DefaultSweepInterval = 60 * time.Second

// Tracker owns the allocation lifecycle and its periodic reconciliation.
type Tracker struct {
	store *store.Store
	cron  *cron.Cron
}

// New builds a Tracker. interval <= 0 uses DefaultSweepInterval.
func New(s *store.Store, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	c := cron.New()
	spec := "@every " + interval.String()
	t := &Tracker{store: s, cron: c}
	if _, err := c.AddFunc(spec, t.sweep); err != nil {
		slog.Error("scheduled allocation sweep not registered", "error", err)
	}
	return t
}

// Start begins the reconciliation cron loop.
func (t *Tracker) Start() { t.cron.Start() }

// Stop gracefully stops the cron loop, waiting for a running sweep to
// finish or ctx to expire, whichever comes first.
func (t *Tracker) Stop(ctx context.Context) error {
	stopCtx := t.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweep re-reads every workflow's ScheduledComputeNode rows and logs a
// pending/active summary. It performs no writes of its own — terminal
// status transitions are driven by the external scheduler driver via
// ReportAllocationStatus; this loop exists purely to surface allocations
// that have sat pending or active for longer than expected.
func (t *Tracker) sweep() {
	ctx := context.Background()
	workflows, err := t.store.ListWorkflows(ctx, "", true)
	if err != nil {
		slog.Warn("scheduled allocation sweep: list workflows failed", "error", err)
		return
	}
	for _, wf := range workflows {
		if wf.IsArchived {
			continue
		}
		nodes, err := t.store.ListScheduledComputeNodes(ctx, wf.ID)
		if err != nil {
			slog.Warn("scheduled allocation sweep: list allocations failed", "workflow_id", wf.ID, "error", err)
			continue
		}
		pending, active := 0, 0
		for _, n := range nodes {
			switch n.Status {
			case domain.AllocationPending:
				pending++
			case domain.AllocationActive:
				active++
			}
		}
		if pending+active > 0 {
			slog.Debug("scheduled allocation sweep", "workflow_id", wf.ID, "pending", pending, "active", active)
		}
	}
}

// ReportAllocationStatus applies a status report from an external
// scheduler driver, idempotent on repeated terminal reports.
func (t *Tracker) ReportAllocationStatus(ctx context.Context, workflowID, id int64, status domain.ScheduledComputeNodeStatus) (domain.ScheduledComputeNode, error) {
	return t.store.UpdateScheduledComputeNodeStatus(ctx, workflowID, id, status)
}

// HasPendingOrActiveAllocations is the predicate the auto-schedule
// heuristic (external; consumes this via the HTTP API) needs before
// deciding whether to request more compute.
func (t *Tracker) HasPendingOrActiveAllocations(ctx context.Context, workflowID int64) (bool, error) {
	return t.store.HasPendingOrActiveAllocations(ctx, workflowID)
}
