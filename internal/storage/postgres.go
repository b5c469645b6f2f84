package storage

import (
	"database/sql"
	"fmt"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

// SaveWorkflow creates a new workflow and returns its ID (no nodes/deps)
func (s *PostgresStore) SaveWorkflow(w models.Workflow) (int64, error) {
	var wfID int64
	err := s.db.QueryRowx(
		"INSERT INTO workflows (name, objective, status, progress, approved, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		w.Name, w.Objective, w.Status, w.Progress, w.Approved, w.CreatedAt, w.UpdatedAt).Scan(&wfID)
	if err != nil {
		return 0, fmt.Errorf("save workflow: %w", err)
	}
	return wfID, nil
}

// GetWorkflow retrieves a workflow by ID, including nodes and their dependencies
func (s *PostgresStore) GetWorkflow(id int64) (models.Workflow, error) {
	var wf models.Workflow
	err := s.db.Get(&wf, "SELECT id, name, objective, status, progress, approved, created_at, updated_at FROM workflows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.Workflow{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Workflow{}, err
	}

	nodes, err := s.ListNodes(id)
	if err != nil {
		return models.Workflow{}, fmt.Errorf("get workflow %d: %w", id, err)
	}
	wf.Nodes = nodes
	return wf, nil
}

func (s *PostgresStore) ListWorkflows() ([]models.Workflow, error) {
	workflows := []models.Workflow{}
	query := "SELECT id, name, objective, status, progress, approved, created_at, updated_at FROM workflows ORDER BY created_at DESC"
	if err := s.db.Select(&workflows, query); err != nil {
		return nil, err
	}
	return workflows, nil
}

// UpdateWorkflowStatus updates the status of a workflow
func (s *PostgresStore) UpdateWorkflowStatus(id int64, status models.WorkflowStatus) error {
	_, err := s.db.Exec("UPDATE workflows SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", status, id)
	return err
}

// UpdateWorkflowProgress updates the completion fraction of a workflow
func (s *PostgresStore) UpdateWorkflowProgress(id int64, progress float64) error {
	_, err := s.db.Exec("UPDATE workflows SET progress = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", progress, id)
	return err
}

// SetWorkflowApproved flips the approval gate on a workflow contract
func (s *PostgresStore) SetWorkflowApproved(id int64, approved bool) error {
	_, err := s.db.Exec("UPDATE workflows SET approved = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", approved, id)
	return err
}

// SaveNode creates a new DAG node within a workflow
func (s *PostgresStore) SaveNode(n models.Node) error {
	_, err := s.db.Exec(
		"INSERT INTO nodes (id, workflow_id, name, agent, description, status, error_msg, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		n.ID, n.WorkflowID, n.Name, n.Agent, n.Description, n.Status, n.ErrorMsg, n.StartedAt, n.FinishedAt)
	return err
}

// GetNode retrieves a node by ID and workflow ID
func (s *PostgresStore) GetNode(id string, workflowID int64) (models.Node, error) {
	var node models.Node
	err := s.db.Get(&node, "SELECT * FROM nodes WHERE id = $1 AND workflow_id = $2", id, workflowID)
	if err == sql.ErrNoRows {
		return models.Node{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Node{}, err
	}
	deps, err := s.dependenciesOf(id, workflowID)
	if err != nil {
		return models.Node{}, err
	}
	node.Dependencies = deps
	return node, nil
}

// ListNodes retrieves all nodes of a workflow with dependencies populated
func (s *PostgresStore) ListNodes(workflowID int64) ([]models.Node, error) {
	var nodes []models.Node
	if err := s.db.Select(&nodes, "SELECT * FROM nodes WHERE workflow_id = $1 ORDER BY id", workflowID); err != nil {
		return nil, err
	}

	deps, err := s.GetDependencies(workflowID)
	if err != nil {
		return nil, err
	}
	byNode := make(map[string][]string)
	for _, d := range deps {
		byNode[d.NodeID] = append(byNode[d.NodeID], d.DependsOn)
	}
	for i := range nodes {
		nodes[i].Dependencies = byNode[nodes[i].ID]
	}
	return nodes, nil
}

// UpdateNodeStatus updates the status and error message of a node.
// started_at/finished_at are stamped on the relevant transitions.
func (s *PostgresStore) UpdateNodeStatus(id string, workflowID int64, status models.NodeStatus, errorMsg string) error {
	_, err := s.db.Exec(`
		UPDATE nodes
		SET status = $1,
		error_msg = $2,
		started_at = CASE WHEN $3 = 'running' THEN CURRENT_TIMESTAMP ELSE started_at END,
		finished_at = CASE WHEN $3 IN ('completed', 'failed') THEN CURRENT_TIMESTAMP ELSE finished_at END
		WHERE id = $4 AND workflow_id = $5`,
		// Postgres treats the CASE parameters as separate, hence status is passed twice
		status, errorMsg, status, id, workflowID)
	return err
}

// SaveDependency creates a new dependency edge between nodes
func (s *PostgresStore) SaveDependency(d models.Dependency) error {
	_, err := s.db.Exec(
		"INSERT INTO dependencies (node_id, depends_on, workflow_id) VALUES ($1, $2, $3)",
		d.NodeID, d.DependsOn, d.WorkflowID)
	return err
}

// GetDependencies retrieves all dependency edges of a workflow
func (s *PostgresStore) GetDependencies(workflowID int64) ([]models.Dependency, error) {
	var deps []models.Dependency
	if err := s.db.Select(&deps, "SELECT node_id, depends_on, workflow_id FROM dependencies WHERE workflow_id = $1", workflowID); err != nil {
		return nil, err
	}
	return deps, nil
}

func (s *PostgresStore) dependenciesOf(nodeID string, workflowID int64) ([]string, error) {
	var deps []string
	if err := s.db.Select(&deps, "SELECT depends_on FROM dependencies WHERE node_id = $1 AND workflow_id = $2", nodeID, workflowID); err != nil {
		return nil, err
	}
	return deps, nil
}

// SaveDataRoom creates a new data room record
func (s *PostgresStore) SaveDataRoom(d models.DataRoom) error {
	_, err := s.db.Exec(
		"INSERT INTO datarooms (id, name, provider, config, read_only, last_sync_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		d.ID, d.Name, d.Provider, []byte(d.Config), d.ReadOnly, d.LastSyncAt, d.CreatedAt)
	return err
}

// GetDataRoom retrieves a data room by ID
func (s *PostgresStore) GetDataRoom(id string) (models.DataRoom, error) {
	var room models.DataRoom
	err := s.db.Get(&room, "SELECT * FROM datarooms WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return models.DataRoom{}, storage.ErrNotFound
	}
	if err != nil {
		return models.DataRoom{}, err
	}
	return room, nil
}

func (s *PostgresStore) ListDataRooms() ([]models.DataRoom, error) {
	rooms := []models.DataRoom{}
	if err := s.db.Select(&rooms, "SELECT * FROM datarooms ORDER BY created_at DESC"); err != nil {
		return nil, err
	}
	return rooms, nil
}

// DeleteDataRoom removes a data room by ID
func (s *PostgresStore) DeleteDataRoom(id string) error {
	res, err := s.db.Exec("DELETE FROM datarooms WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
