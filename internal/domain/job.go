// Package domain defines the entity types persisted by internal/store and
// operated on by internal/engine. Every type here corresponds 1:1 to a row
// in spec.md's data model table.
package domain

import "time"

// JobStatus is the driving enum of the engine's state machine (spec.md §3).
type JobStatus string

const (
	StatusUninitialized   JobStatus = "Uninitialized"
	StatusBlocked         JobStatus = "Blocked"
	StatusReady           JobStatus = "Ready"
	StatusSubmitted       JobStatus = "Submitted"
	StatusRunning         JobStatus = "Running"
	StatusCompleted       JobStatus = "Completed"
	StatusPendingFailed   JobStatus = "PendingFailed"
	StatusCanceled        JobStatus = "Canceled"
	StatusTerminated      JobStatus = "Terminated"
	StatusDisabled        JobStatus = "Disabled"
)

// IsTerminal reports whether status will never transition further without
// an explicit reset.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPendingFailed, StatusCanceled, StatusTerminated, StatusDisabled:
		return true
	default:
		return false
	}
}

// IsActive reports whether a job in this status still counts toward "the
// workflow has work outstanding" (spec.md §4.2.3 step 5).
func (s JobStatus) IsActive() bool {
	switch s {
	case StatusReady, StatusBlocked, StatusSubmitted, StatusRunning:
		return true
	default:
		return false
	}
}

// Job is a single shell command to be executed once per successful attempt.
type Job struct {
	ID                          int64     `json:"id"`
	WorkflowID                  int64     `json:"workflow_id"`
	Name                        string    `json:"name"`
	Command                     string    `json:"command"`
	Status                      JobStatus `json:"status"`
	AttemptID                   int64     `json:"attempt_id"`
	ResourceRequirementsID      int64     `json:"resource_requirements_id,omitempty"`
	SchedulerID                 int64     `json:"scheduler_id,omitempty"`
	DependsOnJobIDs             []int64   `json:"depends_on_job_ids,omitempty"`
	InputFileIDs                []int64   `json:"input_file_ids,omitempty"`
	OutputFileIDs               []int64   `json:"output_file_ids,omitempty"`
	InputUserDataIDs            []int64   `json:"input_user_data_ids,omitempty"`
	OutputUserDataIDs           []int64   `json:"output_user_data_ids,omitempty"`
	CancelOnBlockingJobFailure  bool      `json:"cancel_on_blocking_job_failure"`
	SupportsTermination         bool      `json:"supports_termination"`
	Priority                    int       `json:"priority,omitempty"`
	// ComputeNodeID is bound at claim time alongside SchedulerID.
	ComputeNodeID int64 `json:"compute_node_id,omitempty"`
}

// ResultStatus is the set of terminal statuses a compute node may report.
type ResultStatus = JobStatus

// Result is an append-only record of one job attempt's outcome.
type Result struct {
	ID               int64     `json:"id"`
	JobID            int64     `json:"job_id"`
	WorkflowID       int64     `json:"workflow_id"`
	RunID            int64     `json:"run_id"`
	AttemptID        int64     `json:"attempt_id"`
	ComputeNodeID    int64     `json:"compute_node_id"`
	ReturnCode       int       `json:"return_code"`
	ExecTimeMinutes  float64   `json:"exec_time_minutes"`
	CompletionTime   time.Time `json:"completion_time"`
	Status           JobStatus `json:"status"`
}
