package models

import "time"

type NodeStatus string

const (
	PendingNodeStatus   NodeStatus = "pending"
	RunningNodeStatus   NodeStatus = "running"
	CompletedNodeStatus NodeStatus = "completed"
	FailedNodeStatus    NodeStatus = "failed"
)

// Node represents one task in a workflow's DAG.
// A node may only become "running" once all of its dependencies are "completed".
type Node struct {
	ID           string     `json:"id" db:"id"`                             // Unique within the workflow (e.g., "strategist")
	WorkflowID   int64      `json:"workflow_id" db:"workflow_id"`           // Foreign key to Workflow
	Name         string     `json:"name" db:"name"`                         // Display name
	Agent        string     `json:"agent" db:"agent"`                       // Agent responsible for the task
	Description  string     `json:"description,omitempty" db:"description"` // What the task does
	Status       NodeStatus `json:"status" db:"status"`                     // "pending", "running", "completed", "failed"
	ErrorMsg     string     `json:"error,omitempty" db:"error_msg"`         // Last error message (optional)
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`   // Nullable start time
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"` // Nullable end time
	Dependencies []string   `json:"dependencies" db:"-"`                    // Node IDs this node depends on
}
