package models

import "time"

type WorkflowStatus string

const (
	PendingWorkflowStatus   WorkflowStatus = "pending"
	RunningWorkflowStatus   WorkflowStatus = "running"
	CompletedWorkflowStatus WorkflowStatus = "completed"
	FailedWorkflowStatus    WorkflowStatus = "failed"
	PausedWorkflowStatus    WorkflowStatus = "paused"
)

// Workflow represents one tracked workflow contract and its task DAG.
type Workflow struct {
	ID        int64          `json:"id" db:"id"`                         // Unique identifier (PostgreSQL auto-increment)
	Name      string         `json:"name" db:"name"`                     // Descriptive name (e.g., "Q3 Launch Plan")
	Objective string         `json:"objective,omitempty" db:"objective"` // Free-text goal the contract was created for
	Status    WorkflowStatus `json:"status" db:"status"`                 // "pending", "running", "completed", "failed", "paused"
	Progress  float64        `json:"progress" db:"progress"`             // Fraction of completed nodes, 0..1
	Approved  bool           `json:"approved" db:"approved"`             // Contract approval gate before execution
	CreatedAt time.Time      `json:"created_at" db:"created_at"`         // Creation timestamp
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`         // Last update timestamp
	Nodes     []Node         `json:"nodes,omitempty"`                    // DAG nodes (populated at runtime)
}
