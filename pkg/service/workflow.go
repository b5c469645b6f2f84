package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ArnovZ080/guildboard/pkg/layout"
	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/pkg/errors"
)

// Logger defines the logging interface for the services.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TaskSpec describes one task of a workflow contract as submitted by
// (or generated for) the caller.
type TaskSpec struct {
	TaskID       string   `json:"task_id"`
	Agent        string   `json:"agent"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

// NodeRunner performs the actual work of one node during execution.
// The default runner completes nodes immediately; callers plug in real
// agent execution here.
type NodeRunner func(ctx context.Context, node models.Node) error

// WorkflowService manages workflow contracts: creation, approval,
// dependency-ordered execution and status reporting.
type WorkflowService struct {
	store  storage.Store
	logger Logger
	runner NodeRunner
}

func NewWorkflowService(store storage.Store, logger Logger) *WorkflowService {
	return &WorkflowService{
		store:  store,
		logger: logger,
		runner: func(ctx context.Context, node models.Node) error { return nil },
	}
}

// SetRunner replaces the per-node execution hook.
func (s *WorkflowService) SetRunner(r NodeRunner) {
	if r != nil {
		s.runner = r
	}
}

// defaultPlan is the generated task list for contracts submitted without
// an explicit plan: a linear content pipeline.
func defaultPlan() []TaskSpec {
	return []TaskSpec{
		{TaskID: "input", Agent: "intake", Description: "Collect objective and source material"},
		{TaskID: "strategist", Agent: "strategist", Description: "Draft the approach", Dependencies: []string{"input"}},
		{TaskID: "writer", Agent: "writer", Description: "Produce the deliverable", Dependencies: []string{"strategist"}},
		{TaskID: "output", Agent: "publisher", Description: "Package and deliver", Dependencies: []string{"writer"}},
	}
}

// CreateContract validates the task DAG and persists a new pending
// workflow with its nodes and dependency edges. When tasks is empty a
// default plan is generated.
func (s *WorkflowService) CreateContract(name, objective string, tasks []TaskSpec) (wf models.Workflow, err error) {
	if name == "" {
		return models.Workflow{}, errors.New("workflow name cannot be empty")
	}
	if len(name) > 100 {
		return models.Workflow{}, errors.New("workflow name too long (max 100 characters)")
	}
	if len(tasks) == 0 {
		tasks = defaultPlan()
	}

	dagNodes := make([]models.DAGNode, len(tasks))
	for i, t := range tasks {
		dagNodes[i] = models.DAGNode{ID: t.TaskID, Name: t.TaskID, Task: t.Description, Dependencies: t.Dependencies}
	}
	if err := layout.Validate(dagNodes); err != nil {
		return models.Workflow{}, errors.Wrap(err, "invalid workflow definition")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.Workflow{}, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	now := time.Now()
	wf = models.Workflow{
		Name:      name,
		Objective: objective,
		Status:    models.PendingWorkflowStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := txStore.SaveWorkflow(wf)
	if err != nil {
		return models.Workflow{}, err
	}
	wf.ID = id

	for _, t := range tasks {
		node := models.Node{
			ID:           t.TaskID,
			WorkflowID:   id,
			Name:         t.TaskID,
			Agent:        t.Agent,
			Description:  t.Description,
			Status:       models.PendingNodeStatus,
			Dependencies: t.Dependencies,
		}
		if err = txStore.SaveNode(node); err != nil {
			return models.Workflow{}, errors.Wrapf(err, "save node %s", t.TaskID)
		}
		for _, dep := range t.Dependencies {
			if err = txStore.SaveDependency(models.Dependency{NodeID: t.TaskID, DependsOn: dep, WorkflowID: id}); err != nil {
				return models.Workflow{}, errors.Wrapf(err, "save dependency %s -> %s", t.TaskID, dep)
			}
		}
		wf.Nodes = append(wf.Nodes, node)
	}

	s.logger.Infof("Created workflow contract '%s' with ID %d (%d nodes)", name, id, len(tasks))
	return wf, nil
}

// Approve flips the contract's approval gate, allowing execution.
func (s *WorkflowService) Approve(id int64) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	if _, err = txStore.GetWorkflow(id); err != nil {
		return err
	}
	if err = txStore.SetWorkflowApproved(id, true); err != nil {
		return err
	}
	s.logger.Infof("Approved workflow %d", id)
	return nil
}

// Execute runs an approved workflow's nodes in dependency order. Each
// node is started only once its dependencies are completed, and progress
// is updated after every node. Cancelling ctx pauses the workflow.
func (s *WorkflowService) Execute(ctx context.Context, id int64) error {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return errors.Wrapf(err, "workflow %d", id)
	}
	if !wf.Approved {
		return errors.Errorf("workflow %d is not approved", id)
	}
	switch wf.Status {
	case models.RunningWorkflowStatus:
		return errors.Errorf("workflow %d is already running", id)
	case models.CompletedWorkflowStatus:
		return errors.Errorf("workflow %d is already completed", id)
	}

	dagNodes := toDAGNodes(wf.Nodes)
	order, err := layout.Order(dagNodes)
	if err != nil {
		if errU := s.store.UpdateWorkflowStatus(id, models.FailedWorkflowStatus); errU != nil {
			s.logger.Errorf("Failed to mark workflow %d failed: %v", id, errU)
		}
		return errors.Wrapf(err, "workflow %d definition", id)
	}

	if err := s.store.UpdateWorkflowStatus(id, models.RunningWorkflowStatus); err != nil {
		return errors.Wrapf(err, "failed to set workflow %d to running", id)
	}

	nodes := NewNodeService(s.store, s.logger)
	byID := make(map[string]models.Node, len(wf.Nodes))
	for _, n := range wf.Nodes {
		byID[n.ID] = n
	}

	completed := 0
	for _, nodeID := range order {
		if ctx.Err() != nil {
			s.logger.Infof("Execution of workflow %d interrupted: %v", id, ctx.Err())
			if errU := s.store.UpdateWorkflowStatus(id, models.PausedWorkflowStatus); errU != nil {
				s.logger.Errorf("Failed to mark workflow %d paused: %v", id, errU)
			}
			return ctx.Err()
		}

		node := byID[nodeID]
		if node.Status == models.CompletedNodeStatus {
			completed++
			continue
		}

		canRun, err := nodes.CanRunNode(node)
		if err != nil {
			return err
		}
		if !canRun {
			// A dependency failed earlier in the order; this node stays pending.
			continue
		}

		if err := nodes.UpdateNodeStatus(node.ID, id, models.RunningNodeStatus, ""); err != nil {
			return err
		}
		if runErr := s.runner(ctx, node); runErr != nil {
			s.logger.Errorf("Node %s of workflow %d failed: %v", node.ID, id, runErr)
			if errU := nodes.UpdateNodeStatus(node.ID, id, models.FailedNodeStatus, runErr.Error()); errU != nil {
				s.logger.Errorf("Failed to mark node %s failed: %v", node.ID, errU)
			}
			if errU := s.store.UpdateWorkflowStatus(id, models.FailedWorkflowStatus); errU != nil {
				s.logger.Errorf("Failed to mark workflow %d failed: %v", id, errU)
			}
			return errors.Wrapf(runErr, "node %s failed", node.ID)
		}
		if err := nodes.UpdateNodeStatus(node.ID, id, models.CompletedNodeStatus, ""); err != nil {
			return err
		}
		node.Status = models.CompletedNodeStatus
		byID[nodeID] = node
		completed++

		progress := float64(completed) / float64(len(order))
		if err := s.store.UpdateWorkflowProgress(id, progress); err != nil {
			s.logger.Errorf("Failed to update progress of workflow %d: %v", id, err)
		}
	}

	if completed < len(order) {
		if err := s.store.UpdateWorkflowStatus(id, models.FailedWorkflowStatus); err != nil {
			return errors.Wrapf(err, "failed to mark workflow %d failed", id)
		}
		return errors.Errorf("workflow %d finished with unrunnable nodes", id)
	}

	if err := s.store.UpdateWorkflowStatus(id, models.CompletedWorkflowStatus); err != nil {
		return errors.Wrapf(err, "failed to set workflow %d to completed", id)
	}
	s.logger.Infof("Executed workflow %d (%d nodes)", id, completed)
	return nil
}

// Status builds the status report served to pollers.
func (s *WorkflowService) Status(id int64) (models.StatusReport, error) {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return models.StatusReport{}, errors.Wrapf(err, "workflow %d", id)
	}
	return models.StatusReport{
		ID:       wf.ID,
		Status:   wf.Status,
		Progress: progressOf(wf),
		DAG:      models.DAGDefinition{Nodes: toDAGNodes(wf.Nodes)},
	}, nil
}

// progressOf prefers the live node counts over the persisted fraction so
// a report is never behind its own DAG.
func progressOf(wf models.Workflow) float64 {
	if len(wf.Nodes) == 0 {
		return wf.Progress
	}
	completed := 0
	for _, n := range wf.Nodes {
		if n.Status == models.CompletedNodeStatus {
			completed++
		}
	}
	return float64(completed) / float64(len(wf.Nodes))
}

func toDAGNodes(nodes []models.Node) []models.DAGNode {
	out := make([]models.DAGNode, len(nodes))
	for i, n := range nodes {
		deps := n.Dependencies
		if deps == nil {
			deps = []string{}
		}
		out[i] = models.DAGNode{
			ID:           n.ID,
			Name:         n.Name,
			Task:         n.Description,
			Status:       n.Status,
			Dependencies: deps,
		}
	}
	return out
}

// GetWorkflow fetches a workflow with its nodes.
func (s *WorkflowService) GetWorkflow(id int64) (models.Workflow, error) {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return models.Workflow{}, fmt.Errorf("failed to get workflow %d: %v", id, err)
	}
	return wf, nil
}

func (s *WorkflowService) ListWorkflows() ([]models.Workflow, error) {
	return s.store.ListWorkflows()
}
