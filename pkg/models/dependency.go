package models

// Dependency defines an edge in a workflow DAG: one node depends on another.
type Dependency struct {
	NodeID     string `json:"node_id" db:"node_id"`         // Node that depends on another
	DependsOn  string `json:"depends_on" db:"depends_on"`   // Prerequisite node
	WorkflowID int64  `json:"workflow_id" db:"workflow_id"` // Foreign key to Workflow
}
