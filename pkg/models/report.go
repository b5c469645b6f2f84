package models

// DAGNode is the wire form of a node inside a status report.
type DAGNode struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Task         string     `json:"task"`
	Status       NodeStatus `json:"status"`
	Dependencies []string   `json:"dependencies"`
}

// DAGDefinition is the dependency graph of a workflow's tasks as served
// by the status endpoint.
type DAGDefinition struct {
	Nodes []DAGNode `json:"nodes"`
}

// StatusReport is the payload of GET /api/workflows/{id}/status.
type StatusReport struct {
	ID       int64          `json:"id"`
	Status   WorkflowStatus `json:"status"`
	Progress float64        `json:"progress"`
	DAG      DAGDefinition  `json:"dag_definition"`
}
