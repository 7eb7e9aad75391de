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

// CreateResourceRequirements inserts a ResourceRequirements record.
func (s *Store) CreateResourceRequirements(ctx context.Context, rr domain.ResourceRequirements) (domain.ResourceRequirements, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_resource_requirements", start)

	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "resource_requirements", rr.WorkflowID)
		if err != nil {
			return err
		}
		rr.ID = id
		if err := checkAndReserveUnique(btx, "resource_requirements_name", rr.WorkflowID, rr.Name, id); err != nil {
			return torcerr.NewConflict("resource_requirements name %q already exists in workflow %d", rr.Name, rr.WorkflowID)
		}
		data, err := json.Marshal(rr)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketResourceReqs).Put(encodeKey(rr.WorkflowID, id), data)
	})
	if err != nil {
		return domain.ResourceRequirements{}, err
	}
	return rr, nil
}

// GetResourceRequirements fetches a single resource requirements record.
func (s *Store) GetResourceRequirements(ctx context.Context, workflowID, id int64) (domain.ResourceRequirements, error) {
	var rr domain.ResourceRequirements
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketResourceReqs).Get(encodeKey(workflowID, id))
		if data == nil {
			return torcerr.NewNotFound("resource_requirements %d not found in workflow %d", id, workflowID)
		}
		return json.Unmarshal(data, &rr)
	})
	return rr, err
}

// ListResourceRequirements returns every resource-requirements record for a
// workflow, used by the claim coordinator to build its job->requirements
// lookup in one pass.
func (s *Store) ListResourceRequirements(ctx context.Context, workflowID int64) ([]domain.ResourceRequirements, error) {
	var out []domain.ResourceRequirements
	err := s.db.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketResourceReqs).Cursor()
		prefix := encodePrefix(workflowID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var rr domain.ResourceRequirements
			if err := json.Unmarshal(v, &rr); err != nil {
				return err
			}
			out = append(out, rr)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// CreateFile inserts a File, enforcing unique name and unique path per
// workflow (spec.md's File uniqueness invariant).
func (s *Store) CreateFile(ctx context.Context, f domain.File) (domain.File, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_file", start)

	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "file", f.WorkflowID)
		if err != nil {
			return err
		}
		f.ID = id
		if err := checkAndReserveUnique(btx, "file_name", f.WorkflowID, f.Name, id); err != nil {
			return torcerr.NewConflict("file name %q already exists in workflow %d", f.Name, f.WorkflowID)
		}
		if err := checkAndReserveUnique(btx, "file_path", f.WorkflowID, f.Path, id); err != nil {
			return torcerr.NewConflict("file path %q already registered in workflow %d", f.Path, f.WorkflowID)
		}
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketFiles).Put(encodeKey(f.WorkflowID, id), data)
	})
	if err != nil {
		return domain.File{}, err
	}
	return f, nil
}

// GetFile fetches a single file by id.
func (s *Store) GetFile(ctx context.Context, workflowID, id int64) (domain.File, error) {
	var f domain.File
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketFiles).Get(encodeKey(workflowID, id))
		if data == nil {
			return torcerr.NewNotFound("file %d not found in workflow %d", id, workflowID)
		}
		return json.Unmarshal(data, &f)
	})
	return f, err
}

// ListFiles returns every file registered in a workflow.
func (s *Store) ListFiles(ctx context.Context, workflowID int64) ([]domain.File, error) {
	var out []domain.File
	err := s.db.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketFiles).Cursor()
		prefix := encodePrefix(workflowID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var f domain.File
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			out = append(out, f)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// CreateUserData inserts a UserData blob, enforcing unique name per workflow.
func (s *Store) CreateUserData(ctx context.Context, d domain.UserData) (domain.UserData, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_user_data", start)

	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "user_data", d.WorkflowID)
		if err != nil {
			return err
		}
		d.ID = id
		if err := checkAndReserveUnique(btx, "user_data_name", d.WorkflowID, d.Name, id); err != nil {
			return torcerr.NewConflict("user_data name %q already exists in workflow %d", d.Name, d.WorkflowID)
		}
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketUserData).Put(encodeKey(d.WorkflowID, id), data)
	})
	if err != nil {
		return domain.UserData{}, err
	}
	return d, nil
}

// GetUserData fetches a single user-data blob.
func (s *Store) GetUserData(ctx context.Context, workflowID, id int64) (domain.UserData, error) {
	var d domain.UserData
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketUserData).Get(encodeKey(workflowID, id))
		if data == nil {
			return torcerr.NewNotFound("user_data %d not found in workflow %d", id, workflowID)
		}
		return json.Unmarshal(data, &d)
	})
	return d, err
}

// ListUserData returns every user-data blob registered in a workflow.
func (s *Store) ListUserData(ctx context.Context, workflowID int64) ([]domain.UserData, error) {
	var out []domain.UserData
	err := s.db.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketUserData).Cursor()
		prefix := encodePrefix(workflowID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var d domain.UserData
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// CreateScheduler inserts a scheduler config (Slurm or local), enforcing
// unique name per workflow.
func (s *Store) CreateScheduler(ctx context.Context, sc domain.Scheduler) (domain.Scheduler, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_scheduler", start)

	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "scheduler", sc.WorkflowID)
		if err != nil {
			return err
		}
		sc.ID = id
		if err := checkAndReserveUnique(btx, "scheduler_name", sc.WorkflowID, sc.Name, id); err != nil {
			return torcerr.NewConflict("scheduler name %q already exists in workflow %d", sc.Name, sc.WorkflowID)
		}
		data, err := json.Marshal(sc)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketSchedulers).Put(encodeKey(sc.WorkflowID, id), data)
	})
	if err != nil {
		return domain.Scheduler{}, err
	}
	return sc, nil
}

// GetScheduler fetches a scheduler config.
func (s *Store) GetScheduler(ctx context.Context, workflowID, id int64) (domain.Scheduler, error) {
	var sc domain.Scheduler
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketSchedulers).Get(encodeKey(workflowID, id))
		if data == nil {
			return torcerr.NewNotFound("scheduler %d not found in workflow %d", id, workflowID)
		}
		return json.Unmarshal(data, &sc)
	})
	return sc, err
}

// ListSchedulers returns every scheduler config registered in a workflow.
func (s *Store) ListSchedulers(ctx context.Context, workflowID int64) ([]domain.Scheduler, error) {
	var out []domain.Scheduler
	err := s.db.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketSchedulers).Cursor()
		prefix := encodePrefix(workflowID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var sc domain.Scheduler
			if err := json.Unmarshal(v, &sc); err != nil {
				return err
			}
			out = append(out, sc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// CreateComputeNode registers a worker attaching to a workflow.
func (s *Store) CreateComputeNode(ctx context.Context, n domain.ComputeNode) (domain.ComputeNode, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_compute_node", start)

	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "compute_node", n.WorkflowID)
		if err != nil {
			return err
		}
		n.ID = id
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return btx.Bucket(bucketComputeNodes).Put(encodeKey(n.WorkflowID, id), data)
	})
	if err != nil {
		return domain.ComputeNode{}, err
	}
	return n, nil
}

// GetComputeNode fetches a compute node.
func (s *Store) GetComputeNode(ctx context.Context, workflowID, id int64) (domain.ComputeNode, error) {
	var n domain.ComputeNode
	err := s.db.View(func(btx *bbolt.Tx) error {
		data := btx.Bucket(bucketComputeNodes).Get(encodeKey(workflowID, id))
		if data == nil {
			return torcerr.NewNotFound("compute_node %d not found in workflow %d", id, workflowID)
		}
		return json.Unmarshal(data, &n)
	})
	return n, err
}

// ListComputeNodes returns every compute node attached to a workflow.
func (s *Store) ListComputeNodes(ctx context.Context, workflowID int64) ([]domain.ComputeNode, error) {
	var out []domain.ComputeNode
	err := s.db.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(bucketComputeNodes).Cursor()
		prefix := encodePrefix(workflowID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var n domain.ComputeNode
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
