package storage

import (
	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the storage operations for guildboard.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Workflow operations
	SaveWorkflow(w models.Workflow) (int64, error)
	GetWorkflow(id int64) (models.Workflow, error)
	ListWorkflows() ([]models.Workflow, error)
	UpdateWorkflowStatus(id int64, status models.WorkflowStatus) error
	UpdateWorkflowProgress(id int64, progress float64) error
	SetWorkflowApproved(id int64, approved bool) error

	// Node operations
	SaveNode(n models.Node) error
	GetNode(id string, workflowID int64) (models.Node, error)
	ListNodes(workflowID int64) ([]models.Node, error)
	UpdateNodeStatus(id string, workflowID int64, status models.NodeStatus, errorMsg string) error

	// Dependency operations
	SaveDependency(d models.Dependency) error
	GetDependencies(workflowID int64) ([]models.Dependency, error)

	// Data room operations
	SaveDataRoom(d models.DataRoom) error
	GetDataRoom(id string) (models.DataRoom, error)
	ListDataRooms() ([]models.DataRoom, error)
	DeleteDataRoom(id string) error
}
