// Package claimcoord implements the claim side of spec.md §4.2.2: selecting
// which Ready jobs a compute node's resource offer can run, and long-polling
// when nothing is claimable yet instead of making callers busy-poll.
//
// Grounded in the dagu-org coordinator handler's long-poll pattern
// (waitingPollers map, per-run mutex, channel-based wake) and its
// getRunMutex idiom, adapted from "wake a specific poller with a task" to
// "wake every waiter on a workflow when something becomes Ready".
package claimcoord

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/platform/resilience"
	"github.com/NREL/torc-sub005/internal/store"
)

// DefaultWait is the long-poll ceiling used when the caller doesn't
// override it (TORC_CLAIM_WAIT).
const DefaultWait = 10 * time.Second

// Coordinator serializes claim attempts per workflow and wakes long-polling
// callers when internal/engine reports a job became Ready.
type Coordinator struct {
	store *store.Store
	wait  time.Duration

	mu      sync.Mutex // guards runMu and signals
	runMu   map[int64]*sync.Mutex
	signals map[int64]chan struct{}
}

// New builds a Coordinator. wait <= 0 uses DefaultWait.
func New(s *store.Store, wait time.Duration) *Coordinator {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Coordinator{
		store:   s,
		wait:    wait,
		runMu:   make(map[int64]*sync.Mutex),
		signals: make(map[int64]chan struct{}),
	}
}

// getRunMutex returns the lazily-created per-workflow serialization mutex,
// mirroring the coordinator handler's getRunMutex.
func (c *Coordinator) getRunMutex(workflowID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mu, ok := c.runMu[workflowID]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	c.runMu[workflowID] = mu
	return mu
}

func (c *Coordinator) readySignal(workflowID int64) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.signals[workflowID]; ok {
		return ch
	}
	ch := make(chan struct{})
	c.signals[workflowID] = ch
	return ch
}

// Notify implements engine.ReadyNotifier: broadcasts to every current
// waiter on workflowID by closing and replacing its signal channel.
func (c *Coordinator) Notify(workflowID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.signals[workflowID]; ok {
		close(ch)
	}
	c.signals[workflowID] = make(chan struct{})
}

// Offer is a compute node's resource claim request.
type Offer struct {
	WorkflowID    int64
	ComputeNodeID int64
	SchedulerID   int64
	Resources     domain.AvailableResources
	// RequireSchedulerID, if nonzero, restricts selection to jobs bound to
	// that scheduler config (spec.md's scheduler_id filter).
	RequireSchedulerID int64
}

// Claim selects and atomically claims the Ready jobs that fit offer's
// resources, ordered priority-descending then id-ascending (spec.md
// §4.2.2), greedily bin-fitting each candidate against the shrinking
// remaining resource pool. If nothing fits, it long-polls for a Ready
// signal and retries after each one, returning an empty result once the
// coordinator's wait duration has elapsed.
func (c *Coordinator) Claim(ctx context.Context, offer Offer) ([]domain.Job, error) {
	runMu := c.getRunMutex(offer.WorkflowID)

	deadline := time.Now().Add(c.wait)
	for {
		runMu.Lock()
		claimed, err := c.tryClaim(ctx, offer)
		runMu.Unlock()
		if err != nil {
			return nil, err
		}
		if len(claimed) > 0 {
			return claimed, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		signal := c.readySignal(offer.WorkflowID)
		timer := time.NewTimer(remaining)
		select {
		case <-signal:
			timer.Stop()
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (c *Coordinator) tryClaim(ctx context.Context, offer Offer) ([]domain.Job, error) {
	jobs, err := c.store.ListJobs(ctx, offer.WorkflowID)
	if err != nil {
		return nil, err
	}

	reqs, err := c.store.ListResourceRequirements(ctx, offer.WorkflowID)
	if err != nil {
		return nil, err
	}
	reqByID := make(map[int64]domain.ResourceRequirements, len(reqs))
	for _, rr := range reqs {
		reqByID[rr.ID] = rr
	}

	candidates := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status != domain.StatusReady {
			continue
		}
		if offer.RequireSchedulerID != 0 && j.SchedulerID != 0 && j.SchedulerID != offer.RequireSchedulerID {
			continue
		}
		candidates = append(candidates, j)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID
	})

	avail := offer.Resources
	var selected []int64
	for _, j := range candidates {
		req := reqByID[j.ResourceRequirementsID]
		fits, err := avail.Fits(req)
		if err != nil {
			continue
		}
		if !fits {
			continue
		}
		avail = avail.Subtract(req)
		selected = append(selected, j.ID)
	}
	if len(selected) == 0 {
		return nil, nil
	}

	return resilience.Retry(ctx, 5, 10*time.Millisecond, func() ([]domain.Job, error) {
		return c.store.ClaimJobs(ctx, offer.WorkflowID, selected, offer.SchedulerID, offer.ComputeNodeID)
	})
}
