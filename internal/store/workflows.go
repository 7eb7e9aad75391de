package store

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// CreateWorkflow inserts a new workflow owned by user, enforcing per-user
// name uniqueness.
func (s *Store) CreateWorkflow(ctx context.Context, name, user string) (domain.Workflow, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_workflow", start)

	var wf domain.Workflow
	err := s.db.Update(func(tx *bbolt.Tx) error {
		id, err := nextID(tx, "workflow", 0)
		if err != nil {
			return err
		}
		if err := checkAndReserveUnique(tx, "workflow_name", 0, user+"/"+name, id); err != nil {
			return torcerr.NewConflict("workflow name %q already exists for user %q", name, user)
		}
		wf = domain.Workflow{ID: id, Name: name, User: user, CreatedAt: time.Now().UTC()}
		data, err := json.Marshal(wf)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketWorkflows).Put(globalKey(id), data)
	})
	if err != nil {
		return domain.Workflow{}, err
	}
	return wf, nil
}

// GetWorkflow fetches a workflow by id.
func (s *Store) GetWorkflow(ctx context.Context, id int64) (domain.Workflow, error) {
	start := time.Now()
	defer s.recordRead(ctx, "get_workflow", start)

	var wf domain.Workflow
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketWorkflows).Get(globalKey(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &wf)
	})
	if err != nil {
		return domain.Workflow{}, torcerr.NewInternal(err, "read workflow %d", id)
	}
	if !found {
		return domain.Workflow{}, torcerr.NewNotFound("workflow %d not found", id)
	}
	return wf, nil
}

// ListWorkflows returns every workflow, optionally filtered to one owner.
func (s *Store) ListWorkflows(ctx context.Context, user string, showAll bool) ([]domain.Workflow, error) {
	start := time.Now()
	defer s.recordRead(ctx, "list_workflows", start)

	var out []domain.Workflow
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketWorkflows).ForEach(func(k, v []byte) error {
			var wf domain.Workflow
			if err := json.Unmarshal(v, &wf); err != nil {
				return nil
			}
			if !showAll && user != "" && wf.User != user {
				return nil
			}
			out = append(out, wf)
			return nil
		})
	})
	return out, err
}

// saveWorkflow overwrites a workflow row within an existing transaction.
func (s *Store) saveWorkflow(tx *bbolt.Tx, wf domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketWorkflows).Put(globalKey(wf.ID), data)
}

func getWorkflowTx(tx *bbolt.Tx, id int64) (domain.Workflow, error) {
	var wf domain.Workflow
	data := tx.Bucket(bucketWorkflows).Get(globalKey(id))
	if data == nil {
		return domain.Workflow{}, torcerr.NewNotFound("workflow %d not found", id)
	}
	return wf, json.Unmarshal(data, &wf)
}

// ArchiveWorkflow marks a workflow archived (soft-delete: the workflow and
// its rows are retained). ListWorkflows still returns archived workflows;
// the scheduled-allocation sweep skips them.
func (s *Store) ArchiveWorkflow(ctx context.Context, id int64) error {
	start := time.Now()
	defer s.recordWrite(ctx, "archive_workflow", start)

	return s.db.Update(func(tx *bbolt.Tx) error {
		wf, err := getWorkflowTx(tx, id)
		if err != nil {
			return err
		}
		wf.IsArchived = true
		return s.saveWorkflow(tx, wf)
	})
}
