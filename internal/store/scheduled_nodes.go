package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// CreateScheduledComputeNode records a new external batch allocation,
// starting in AllocationPending.
func (s *Store) CreateScheduledComputeNode(ctx context.Context, n domain.ScheduledComputeNode) (domain.ScheduledComputeNode, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_scheduled_compute_node", start)

	n.Status = domain.AllocationPending
	n.UpdatedAt = time.Now()
	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "scheduled_compute_node", n.WorkflowID)
		if err != nil {
			return err
		}
		n.ID = id
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketScheduledNodes).Put(encodeKey(n.WorkflowID, id), data)
	})
	if err != nil {
		return domain.ScheduledComputeNode{}, err
	}
	return n, nil
}

// UpdateScheduledComputeNodeStatus advances an allocation's status.
// Re-reporting the same terminal status is accepted silently (idempotent),
// following persistence.go's check-before-overwrite PutWorkflow idiom.
func (s *Store) UpdateScheduledComputeNodeStatus(ctx context.Context, workflowID, id int64, status domain.ScheduledComputeNodeStatus) (domain.ScheduledComputeNode, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "update_scheduled_compute_node_status", start)

	var n domain.ScheduledComputeNode
	err := s.db.Update(func(btx *bbolt.Tx) error {
		key := encodeKey(workflowID, id)
		data := btx.Bucket(bucketScheduledNodes).Get(key)
		if data == nil {
			return torcerr.NewNotFound("scheduled_compute_node %d not found in workflow %d", id, workflowID)
		}
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if n.Status == domain.AllocationComplete && status == domain.AllocationComplete {
			return nil // idempotent re-report of terminal state
		}
		n.Status = status
		n.UpdatedAt = time.Now()
		out, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketScheduledNodes).Put(key, out)
	})
	return n, err
}

// ListScheduledComputeNodes returns every allocation record for a workflow.
func (s *Store) ListScheduledComputeNodes(ctx context.Context, workflowID int64) ([]domain.ScheduledComputeNode, error) {
	var out []domain.ScheduledComputeNode
	err := s.db.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketScheduledNodes).Cursor()
		prefix := encodePrefix(workflowID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var n domain.ScheduledComputeNode
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// HasPendingOrActiveAllocations reports whether a workflow has any
// allocation not yet in AllocationComplete — the predicate the external
// auto-schedule heuristic polls via the HTTP API before requesting more
// compute.
func (s *Store) HasPendingOrActiveAllocations(ctx context.Context, workflowID int64) (bool, error) {
	nodes, err := s.ListScheduledComputeNodes(ctx, workflowID)
	if err != nil {
		return false, err
	}
	for _, n := range nodes {
		if n.Status != domain.AllocationComplete {
			return true, nil
		}
	}
	return false, nil
}

// ListEvents returns a workflow's full hash-chained event log.
func (s *Store) ListEvents(ctx context.Context, workflowID int64) ([]domain.Event, error) {
	var out []domain.Event
	err := s.RunInView(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.ListEvents(workflowID)
		return err
	})
	return out, err
}

// ListResultsForJob returns every recorded attempt outcome for a job.
func (s *Store) ListResultsForJob(ctx context.Context, workflowID, jobID int64) ([]domain.Result, error) {
	var out []domain.Result
	err := s.RunInView(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.ListResultsForJob(workflowID, jobID)
		return err
	})
	return out, err
}

// CreateWorkflowAction registers an action to fire at trigger.
func (s *Store) CreateWorkflowAction(ctx context.Context, action domain.WorkflowAction) (domain.WorkflowAction, error) {
	var out domain.WorkflowAction
	err := s.RunInTx(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.PutWorkflowAction(action)
		return err
	})
	return out, err
}

// ListWorkflowActions returns the actions registered for a trigger point.
func (s *Store) ListWorkflowActions(ctx context.Context, workflowID int64, trigger domain.WorkflowActionTrigger) ([]domain.WorkflowAction, error) {
	var out []domain.WorkflowAction
	err := s.RunInView(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.ListWorkflowActions(workflowID, trigger)
		return err
	})
	return out, err
}
