package storage

import (
	"sync"
	"time"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/pkg/errors"
)

// mockStore implements Store with in-memory storage. It doubles as the
// live store for `serve` when no database is configured, so all access
// goes through a mutex. Transactions are no-ops: there is no isolation
// to provide for a single in-process map.
type mockStore struct {
	mu        sync.RWMutex
	workflows []models.Workflow
	nodes     []models.Node
	deps      []models.Dependency
	rooms     []models.DataRoom
	nextID    int64 // For workflow IDs
}

// NewMockStore returns an empty in-memory store.
func NewMockStore() Store {
	return &mockStore{}
}

func (m *mockStore) Begin() (Store, error) { return m, nil }
func (m *mockStore) Commit() error         { return nil }
func (m *mockStore) Rollback() error       { return nil }
func (m *mockStore) Close() error          { return nil }

func (m *mockStore) SaveWorkflow(wf models.Workflow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	wf.ID = m.nextID
	m.workflows = append(m.workflows, wf)
	return wf.ID, nil
}

func (m *mockStore) GetWorkflow(id int64) (models.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, wf := range m.workflows {
		if wf.ID == id {
			wf.Nodes = m.listNodesLocked(id)
			return wf, nil
		}
	}
	return models.Workflow{}, ErrNotFound
}

func (m *mockStore) ListWorkflows() ([]models.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Workflow, len(m.workflows))
	copy(out, m.workflows)
	return out, nil
}

func (m *mockStore) UpdateWorkflowStatus(id int64, status models.WorkflowStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, wf := range m.workflows {
		if wf.ID == id {
			m.workflows[i].Status = status
			m.workflows[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) UpdateWorkflowProgress(id int64, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, wf := range m.workflows {
		if wf.ID == id {
			m.workflows[i].Progress = progress
			m.workflows[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) SetWorkflowApproved(id int64, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, wf := range m.workflows {
		if wf.ID == id {
			m.workflows[i].Approved = approved
			m.workflows[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) SaveNode(n models.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.nodes {
		if existing.ID == n.ID && existing.WorkflowID == n.WorkflowID {
			return errors.New("node already exists")
		}
	}
	m.nodes = append(m.nodes, n)
	return nil
}

func (m *mockStore) GetNode(id string, workflowID int64) (models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.nodes {
		if n.ID == id && n.WorkflowID == workflowID {
			n.Dependencies = m.dependenciesOfLocked(id, workflowID)
			return n, nil
		}
	}
	return models.Node{}, ErrNotFound
}

func (m *mockStore) ListNodes(workflowID int64) ([]models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listNodesLocked(workflowID), nil
}

func (m *mockStore) listNodesLocked(workflowID int64) []models.Node {
	var out []models.Node
	for _, n := range m.nodes {
		if n.WorkflowID == workflowID {
			n.Dependencies = m.dependenciesOfLocked(n.ID, workflowID)
			out = append(out, n)
		}
	}
	return out
}

func (m *mockStore) dependenciesOfLocked(nodeID string, workflowID int64) []string {
	var deps []string
	for _, d := range m.deps {
		if d.NodeID == nodeID && d.WorkflowID == workflowID {
			deps = append(deps, d.DependsOn)
		}
	}
	return deps
}

func (m *mockStore) UpdateNodeStatus(id string, workflowID int64, status models.NodeStatus, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.nodes {
		if n.ID == id && n.WorkflowID == workflowID {
			now := time.Now()
			m.nodes[i].Status = status
			m.nodes[i].ErrorMsg = errorMsg
			switch status {
			case models.RunningNodeStatus:
				m.nodes[i].StartedAt = &now
			case models.CompletedNodeStatus, models.FailedNodeStatus:
				m.nodes[i].FinishedAt = &now
			}
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockStore) SaveDependency(d models.Dependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.deps {
		if existing.NodeID == d.NodeID && existing.DependsOn == d.DependsOn && existing.WorkflowID == d.WorkflowID {
			return errors.New("dependency already exists")
		}
	}
	m.deps = append(m.deps, d)
	return nil
}

func (m *mockStore) GetDependencies(workflowID int64) ([]models.Dependency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var deps []models.Dependency
	for _, d := range m.deps {
		if d.WorkflowID == workflowID {
			deps = append(deps, d)
		}
	}
	return deps, nil
}

func (m *mockStore) SaveDataRoom(d models.DataRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rooms {
		if existing.ID == d.ID {
			return errors.New("data room already exists")
		}
	}
	m.rooms = append(m.rooms, d)
	return nil
}

func (m *mockStore) GetDataRoom(id string) (models.DataRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.rooms {
		if d.ID == id {
			return d, nil
		}
	}
	return models.DataRoom{}, ErrNotFound
}

func (m *mockStore) ListDataRooms() ([]models.DataRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DataRoom, len(m.rooms))
	copy(out, m.rooms)
	return out, nil
}

func (m *mockStore) DeleteDataRoom(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.rooms {
		if d.ID == id {
			m.rooms = append(m.rooms[:i], m.rooms[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
