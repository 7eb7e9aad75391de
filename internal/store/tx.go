package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/NREL/torc-sub005/internal/domain"
	"github.com/NREL/torc-sub005/internal/torcerr"
)

// Tx is a handle to a single read-write bbolt transaction, exposing
// entity-level operations to callers outside this package (chiefly
// internal/engine) without leaking *bbolt.Tx itself. Every method on Tx
// participates in the same underlying transaction, giving multi-entity
// operations (InitializeJobs, CompleteJob, ResetJobs, ResetFailedJobs) the atomicity
// spec.md's "serializable writes within a workflow" requirement asks for.
type Tx struct {
	btx *bbolt.Tx
}

// RunInTx executes fn inside a single read-write transaction. A returned
// error aborts and rolls back every write fn made.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	start := time.Now()
	defer s.recordWrite(ctx, "tx", start)
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// RunInView executes fn inside a read-only transaction/consistent snapshot.
func (s *Store) RunInView(ctx context.Context, fn func(tx *Tx) error) error {
	start := time.Now()
	defer s.recordRead(ctx, "view", start)
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// --- Jobs ---

// NextJobID allocates the next job id for a workflow.
func (t *Tx) NextJobID(workflowID int64) (int64, error) {
	return nextID(t.btx, "job", workflowID)
}

// PutJob inserts or overwrites a job row.
func (t *Tx) PutJob(job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return t.btx.Bucket(bucketJobs).Put(encodeKey(job.WorkflowID, job.ID), data)
}

// GetJob reads a single job.
func (t *Tx) GetJob(workflowID, jobID int64) (domain.Job, error) {
	data := t.btx.Bucket(bucketJobs).Get(encodeKey(workflowID, jobID))
	if data == nil {
		return domain.Job{}, torcerr.NewNotFound("job %d not found in workflow %d", jobID, workflowID)
	}
	var job domain.Job
	return job, json.Unmarshal(data, &job)
}

// ListJobs returns every job belonging to workflowID.
func (t *Tx) ListJobs(workflowID int64) ([]domain.Job, error) {
	var out []domain.Job
	c := t.btx.Bucket(bucketJobs).Cursor()
	prefix := encodePrefix(workflowID)
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		var job domain.Job
		if err := json.Unmarshal(v, &job); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

// --- Workflows ---

// GetWorkflow reads a workflow within the transaction's snapshot.
func (t *Tx) GetWorkflow(id int64) (domain.Workflow, error) { return getWorkflowTx(t.btx, id) }

// PutWorkflow writes a workflow row (used to persist run_id bumps and
// archive flags atomically with other transaction writes).
func (t *Tx) PutWorkflow(wf domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return err
	}
	return t.btx.Bucket(bucketWorkflows).Put(globalKey(wf.ID), data)
}

// --- Results ---

// AppendResult allocates a result id and writes it.
func (t *Tx) AppendResult(result domain.Result) (domain.Result, error) {
	id, err := nextID(t.btx, "result", result.WorkflowID)
	if err != nil {
		return domain.Result{}, err
	}
	result.ID = id
	data, err := json.Marshal(result)
	if err != nil {
		return domain.Result{}, err
	}
	if err := t.btx.Bucket(bucketResults).Put(encodeKey(result.WorkflowID, result.ID), data); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// ListResultsForJob returns every result recorded for a job, oldest first.
func (t *Tx) ListResultsForJob(workflowID, jobID int64) ([]domain.Result, error) {
	var out []domain.Result
	c := t.btx.Bucket(bucketResults).Cursor()
	prefix := encodePrefix(workflowID)
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		var r domain.Result
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, err
		}
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- Events (hash-chained audit log) ---

// AppendEvent appends an Event, chaining Hash from the workflow's prior
// event hash, adapted from the audit-trail service's AppendLog idiom.
func (t *Tx) AppendEvent(workflowID int64, category string, payload map[string]any) (domain.Event, error) {
	prevHash, err := t.lastEventHash(workflowID)
	if err != nil {
		return domain.Event{}, err
	}
	id, err := nextID(t.btx, "event", workflowID)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{
		ID:         id,
		WorkflowID: workflowID,
		Timestamp:  time.Now(),
		Category:   category,
		Payload:    payload,
		PrevHash:   prevHash,
	}
	ev.Hash = chainHash(prevHash, ev)
	data, err := json.Marshal(ev)
	if err != nil {
		return domain.Event{}, err
	}
	if err := t.btx.Bucket(bucketEvents).Put(encodeKey(workflowID, ev.ID), data); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (t *Tx) lastEventHash(workflowID int64) (string, error) {
	c := t.btx.Bucket(bucketEvents).Cursor()
	prefix := encodePrefix(workflowID)
	var last domain.Event
	found := false
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		if err := json.Unmarshal(v, &last); err != nil {
			return "", err
		}
		found = true
	}
	if !found {
		return "", nil
	}
	return last.Hash, nil
}

// chainHash hashes the previous event's hash together with this event's
// category, payload and id (the timestamp is not hashed), giving the
// append-only log tamper-evidence: altering any hashed field of a stored
// event invalidates every hash after it.
func chainHash(prevHash string, ev domain.Event) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	payload, _ := json.Marshal(ev.Payload)
	h.Write([]byte(ev.Category))
	h.Write(payload)
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = byte(ev.ID >> (8 * (7 - i)))
	}
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil))
}

// ListEvents returns every event for a workflow in id order.
func (t *Tx) ListEvents(workflowID int64) ([]domain.Event, error) {
	var out []domain.Event
	c := t.btx.Bucket(bucketEvents).Cursor()
	prefix := encodePrefix(workflowID)
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		var ev domain.Event
		if err := json.Unmarshal(v, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// --- Workflow actions ---

// ListWorkflowActions returns the actions registered for a trigger point.
func (t *Tx) ListWorkflowActions(workflowID int64, trigger domain.WorkflowActionTrigger) ([]domain.WorkflowAction, error) {
	var out []domain.WorkflowAction
	c := t.btx.Bucket(bucketWorkflowActions).Cursor()
	prefix := encodePrefix(workflowID)
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		var a domain.WorkflowAction
		if err := json.Unmarshal(v, &a); err != nil {
			return nil, err
		}
		if a.Trigger == trigger {
			out = append(out, a)
		}
	}
	return out, nil
}

// PutWorkflowAction inserts (ID==0) or overwrites a workflow action.
func (t *Tx) PutWorkflowAction(action domain.WorkflowAction) (domain.WorkflowAction, error) {
	if action.ID == 0 {
		id, err := nextID(t.btx, "workflow_action", action.WorkflowID)
		if err != nil {
			return domain.WorkflowAction{}, err
		}
		action.ID = id
	}
	data, err := json.Marshal(action)
	if err != nil {
		return domain.WorkflowAction{}, err
	}
	return action, t.btx.Bucket(bucketWorkflowActions).Put(encodeKey(action.WorkflowID, action.ID), data)
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
