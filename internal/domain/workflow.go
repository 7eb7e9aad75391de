package domain

import "time"

// Workflow is the top-level container owning everything beneath it.
type Workflow struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	User       string    `json:"user"`
	IsArchived bool      `json:"is_archived"`
	RunID      int64     `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResourceRequirements describes the compute a job needs to run.
type ResourceRequirements struct {
	ID         int64  `json:"id"`
	WorkflowID int64  `json:"workflow_id"`
	Name       string `json:"name"`
	NumCPUs    int    `json:"num_cpus"`
	NumGPUs    int    `json:"num_gpus"`
	NumNodes   int    `json:"num_nodes"`
	Memory     string `json:"memory"`  // string with unit, e.g. "4GB"
	Runtime    string `json:"runtime"` // ISO 8601 duration, e.g. "PT1H30M"
}

// File is a filesystem artifact referenced by jobs as input or output.
// Whether a file is an output is not stored on the record; it follows from
// some job listing its id in OutputFileIDs.
type File struct {
	ID         int64  `json:"id"`
	WorkflowID int64  `json:"workflow_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
}

// UserData is an opaque JSON blob artifact.
type UserData struct {
	ID         int64           `json:"id"`
	WorkflowID int64           `json:"workflow_id"`
	Name       string          `json:"name"`
	Payload    map[string]any  `json:"payload"`
}

// SchedulerType distinguishes the scheduler-config records a job may bind to.
type SchedulerType string

const (
	SchedulerLocal SchedulerType = "local"
	SchedulerSlurm SchedulerType = "slurm"
)

// Scheduler is a scheduler-config record (SlurmScheduler or LocalScheduler
// in spec.md's table, unified here by Type since the core treats both as
// opaque configuration it never interprets).
type Scheduler struct {
	ID         int64         `json:"id"`
	WorkflowID int64         `json:"workflow_id"`
	Name       string        `json:"name"`
	Type       SchedulerType `json:"type"`
	Fields     map[string]any `json:"fields"`
}

// ScheduledComputeNodeStatus is the external-allocation lifecycle.
type ScheduledComputeNodeStatus string

const (
	AllocationPending  ScheduledComputeNodeStatus = "pending"
	AllocationActive   ScheduledComputeNodeStatus = "active"
	AllocationComplete ScheduledComputeNodeStatus = "complete"
)

// ScheduledComputeNode shadows one external batch allocation's lifecycle.
type ScheduledComputeNode struct {
	ID               int64                      `json:"id"`
	WorkflowID       int64                      `json:"workflow_id"`
	SchedulerConfigID int64                     `json:"scheduler_config_id"`
	SchedulerID      string                     `json:"scheduler_id"` // external batch id
	SchedulerType    SchedulerType              `json:"scheduler_type"`
	Status           ScheduledComputeNodeStatus `json:"status"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// ComputeNode is created when a worker attaches to the workflow.
type ComputeNode struct {
	ID         int64          `json:"id"`
	WorkflowID int64          `json:"workflow_id"`
	Hostname   string         `json:"hostname"`
	Resources  map[string]any `json:"resources"`
}

// Event is an append-only audit-log record.
type Event struct {
	ID         int64          `json:"id"`
	WorkflowID int64          `json:"workflow_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Category   string         `json:"category"`
	Payload    map[string]any `json:"payload"`
	PrevHash   string         `json:"prev_hash"`
	Hash       string         `json:"hash"`
}

const (
	EventWorkflowStarted   = "WorkflowStarted"
	EventWorkflowCompleted = "WorkflowCompleted"
)

// WorkflowActionTrigger names the point in the engine lifecycle an action fires at.
type WorkflowActionTrigger string

const (
	TriggerOnWorkflowStart    WorkflowActionTrigger = "on_workflow_start"
	TriggerOnWorkflowComplete WorkflowActionTrigger = "on_workflow_complete"
)

// WorkflowAction is a registered side effect (currently: a webhook POST)
// fired at a lifecycle trigger point.
type WorkflowAction struct {
	ID         int64                  `json:"id"`
	WorkflowID int64                  `json:"workflow_id"`
	Trigger    WorkflowActionTrigger  `json:"trigger"`
	Payload    map[string]any         `json:"payload"`
}
