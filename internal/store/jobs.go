package store

import (
	"context"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// CreateJob inserts a single job in Uninitialized status, enforcing
// per-workflow name uniqueness.
func (s *Store) CreateJob(ctx context.Context, job domain.Job) (domain.Job, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "create_job", start)

	job.Status = domain.StatusUninitialized
	err := s.db.Update(func(btx *bbolt.Tx) error {
		id, err := nextID(btx, "job", job.WorkflowID)
		if err != nil {
			return err
		}
		job.ID = id
		if err := checkAndReserveUnique(btx, "job_name", job.WorkflowID, job.Name, id); err != nil {
			return torcerr.NewConflict("job name %q already exists in workflow %d", job.Name, job.WorkflowID)
		}
		tx := &Tx{btx: btx}
		return tx.PutJob(job)
	})
	if err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// GetJob fetches a single job by workflow+job id.
func (s *Store) GetJob(ctx context.Context, workflowID, jobID int64) (domain.Job, error) {
	start := time.Now()
	defer s.recordRead(ctx, "get_job", start)

	var job domain.Job
	err := s.db.View(func(btx *bbolt.Tx) error {
		tx := &Tx{btx: btx}
		var err error
		job, err = tx.GetJob(workflowID, jobID)
		return err
	})
	return job, err
}

// ListJobs returns every job in a workflow, sorted by id.
func (s *Store) ListJobs(ctx context.Context, workflowID int64) ([]domain.Job, error) {
	start := time.Now()
	defer s.recordRead(ctx, "list_jobs", start)

	var jobs []domain.Job
	err := s.db.View(func(btx *bbolt.Tx) error {
		tx := &Tx{btx: btx}
		var err error
		jobs, err = tx.ListJobs(workflowID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

// ClaimJobs is the store's one multi-row mutation primitive: given the ids
// selected by internal/claimcoord, it rewrites each job's status to
// Submitted and binds schedulerID/computeNodeID, all inside one
// transaction. Any job that is no longer Ready (lost the race to a
// concurrent claim, or was canceled/disabled in the interim) is skipped
// rather than failing the whole batch, so callers get back exactly the
// subset they actually won.
func (s *Store) ClaimJobs(ctx context.Context, workflowID int64, jobIDs []int64, schedulerID, computeNodeID int64) ([]domain.Job, error) {
	start := time.Now()
	defer s.recordWrite(ctx, "claim_jobs", start)

	var claimed []domain.Job
	err := s.db.Update(func(btx *bbolt.Tx) error {
		tx := &Tx{btx: btx}
		for _, id := range jobIDs {
			job, err := tx.GetJob(workflowID, id)
			if err != nil {
				continue
			}
			if job.Status != domain.StatusReady {
				continue
			}
			job.Status = domain.StatusSubmitted
			job.AttemptID++
			job.SchedulerID = schedulerID
			job.ComputeNodeID = computeNodeID
			if err := tx.PutJob(job); err != nil {
				return err
			}
			claimed = append(claimed, job)
		}
		return nil
	})
	if err != nil {
		return nil, torcerr.NewInternal(err, "claim jobs for workflow %d", workflowID)
	}
	return claimed, nil
}

// UpdateJobDependencies rewrites job's full record, used by exportimport's
// second pass once every imported job has a new id and DependsOnJobIDs can
// be remapped through the old_id->new_id map built in the first pass.
func (s *Store) UpdateJobDependencies(ctx context.Context, job domain.Job) error {
	start := time.Now()
	defer s.recordWrite(ctx, "update_job_dependencies", start)

	return s.db.Update(func(btx *bbolt.Tx) error {
		tx := &Tx{btx: btx}
		return tx.PutJob(job)
	})
}

// UpdateJobStatuses performs a bulk status rewrite in one transaction. The
// engine's cascades do not use it; they write through Tx.PutJob.
func (s *Store) UpdateJobStatuses(ctx context.Context, workflowID int64, updates map[int64]domain.JobStatus) error {
	start := time.Now()
	defer s.recordWrite(ctx, "update_job_statuses", start)

	return s.db.Update(func(btx *bbolt.Tx) error {
		tx := &Tx{btx: btx}
		for id, status := range updates {
			job, err := tx.GetJob(workflowID, id)
			if err != nil {
				return err
			}
			job.Status = status
			if err := tx.PutJob(job); err != nil {
				return err
			}
		}
		return nil
	})
}
