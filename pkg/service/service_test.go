package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/service"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{})  {}
func (l logger) Errorf(format string, args ...interface{}) {}

func newWorkflowService() (*service.WorkflowService, storage.Store) {
	store := storage.NewMockStore()
	return service.NewWorkflowService(store, logger{}), store
}

func diamondTasks() []service.TaskSpec {
	return []service.TaskSpec{
		{TaskID: "root", Agent: "intake", Description: "gather"},
		{TaskID: "left", Agent: "writer", Description: "draft", Dependencies: []string{"root"}},
		{TaskID: "right", Agent: "writer", Description: "outline", Dependencies: []string{"root"}},
		{TaskID: "merge", Agent: "publisher", Description: "assemble", Dependencies: []string{"left", "right"}},
	}
}

func TestCreateContract(t *testing.T) {
	t.Run("GeneratesDefaultPlan", func(t *testing.T) {
		svc, _ := newWorkflowService()
		wf, err := svc.CreateContract("Q2 report", "Summarize quarter", nil)
		assert.NoError(t, err)
		assert.NotZero(t, wf.ID)
		assert.Equal(t, models.PendingWorkflowStatus, wf.Status)
		assert.Len(t, wf.Nodes, 4)
		assert.Equal(t, "input", wf.Nodes[0].ID)
		assert.Equal(t, "output", wf.Nodes[3].ID)
		assert.False(t, wf.Approved)
	})

	t.Run("PersistsExplicitPlan", func(t *testing.T) {
		svc, store := newWorkflowService()
		wf, err := svc.CreateContract("diamond", "", diamondTasks())
		assert.NoError(t, err)

		stored, err := store.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Len(t, stored.Nodes, 4)

		deps, err := store.GetDependencies(wf.ID)
		assert.NoError(t, err)
		assert.Len(t, deps, 4)
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		svc, _ := newWorkflowService()
		_, err := svc.CreateContract("", "", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("RejectsLongName", func(t *testing.T) {
		svc, _ := newWorkflowService()
		name := make([]byte, 101)
		for i := range name {
			name[i] = 'x'
		}
		_, err := svc.CreateContract(string(name), "", nil)
		assert.Error(t, err)
	})

	t.Run("RejectsCyclicPlan", func(t *testing.T) {
		svc, _ := newWorkflowService()
		_, err := svc.CreateContract("cycle", "", []service.TaskSpec{
			{TaskID: "a", Dependencies: []string{"b"}},
			{TaskID: "b", Dependencies: []string{"a"}},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid workflow definition")
	})

	t.Run("RejectsUnknownDependency", func(t *testing.T) {
		svc, _ := newWorkflowService()
		_, err := svc.CreateContract("bad", "", []service.TaskSpec{
			{TaskID: "a", Dependencies: []string{"ghost"}},
		})
		assert.Error(t, err)
	})
}

func TestApprove(t *testing.T) {
	svc, store := newWorkflowService()
	wf, err := svc.CreateContract("approve me", "", nil)
	assert.NoError(t, err)

	assert.NoError(t, svc.Approve(wf.ID))
	stored, err := store.GetWorkflow(wf.ID)
	assert.NoError(t, err)
	assert.True(t, stored.Approved)

	err = svc.Approve(999)
	assert.ErrorIs(t, errors.Cause(err), storage.ErrNotFound)
}

func TestExecute(t *testing.T) {
	t.Run("RunsNodesInDependencyOrder", func(t *testing.T) {
		svc, store := newWorkflowService()
		wf, err := svc.CreateContract("diamond", "", diamondTasks())
		assert.NoError(t, err)
		assert.NoError(t, svc.Approve(wf.ID))

		var ran []string
		svc.SetRunner(func(ctx context.Context, node models.Node) error {
			ran = append(ran, node.ID)
			return nil
		})

		assert.NoError(t, svc.Execute(context.Background(), wf.ID))

		pos := make(map[string]int, len(ran))
		for i, id := range ran {
			pos[id] = i
		}
		assert.Len(t, ran, 4)
		assert.Less(t, pos["root"], pos["left"])
		assert.Less(t, pos["root"], pos["right"])
		assert.Less(t, pos["left"], pos["merge"])
		assert.Less(t, pos["right"], pos["merge"])

		stored, err := store.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.CompletedWorkflowStatus, stored.Status)
		assert.Equal(t, 1.0, stored.Progress)
		for _, n := range stored.Nodes {
			assert.Equal(t, models.CompletedNodeStatus, n.Status)
			assert.NotNil(t, n.StartedAt)
			assert.NotNil(t, n.FinishedAt)
		}
	})

	t.Run("RequiresApproval", func(t *testing.T) {
		svc, _ := newWorkflowService()
		wf, err := svc.CreateContract("unapproved", "", nil)
		assert.NoError(t, err)

		err = svc.Execute(context.Background(), wf.ID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not approved")
	})

	t.Run("NodeFailureFailsWorkflow", func(t *testing.T) {
		svc, store := newWorkflowService()
		wf, err := svc.CreateContract("failing", "", nil)
		assert.NoError(t, err)
		assert.NoError(t, svc.Approve(wf.ID))

		svc.SetRunner(func(ctx context.Context, node models.Node) error {
			if node.ID == "strategist" {
				return errors.New("agent crashed")
			}
			return nil
		})

		err = svc.Execute(context.Background(), wf.ID)
		assert.Error(t, err)

		stored, err := store.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.FailedWorkflowStatus, stored.Status)
		for _, n := range stored.Nodes {
			switch n.ID {
			case "input":
				assert.Equal(t, models.CompletedNodeStatus, n.Status)
			case "strategist":
				assert.Equal(t, models.FailedNodeStatus, n.Status)
				assert.Equal(t, "agent crashed", n.ErrorMsg)
			default:
				// downstream of the failure never starts
				assert.Equal(t, models.PendingNodeStatus, n.Status)
			}
		}
	})

	t.Run("CancellationPausesWorkflow", func(t *testing.T) {
		svc, store := newWorkflowService()
		wf, err := svc.CreateContract("paused", "", nil)
		assert.NoError(t, err)
		assert.NoError(t, svc.Approve(wf.ID))

		ctx, cancel := context.WithCancel(context.Background())
		svc.SetRunner(func(ctx context.Context, node models.Node) error {
			if node.ID == "input" {
				cancel()
			}
			return nil
		})

		err = svc.Execute(ctx, wf.ID)
		assert.ErrorIs(t, err, context.Canceled)

		stored, err := store.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.PausedWorkflowStatus, stored.Status)
	})

	t.Run("ResumesAfterPause", func(t *testing.T) {
		svc, store := newWorkflowService()
		wf, err := svc.CreateContract("resumed", "", nil)
		assert.NoError(t, err)
		assert.NoError(t, svc.Approve(wf.ID))

		ctx, cancel := context.WithCancel(context.Background())
		var firstRun []string
		svc.SetRunner(func(ctx context.Context, node models.Node) error {
			firstRun = append(firstRun, node.ID)
			if node.ID == "strategist" {
				cancel()
			}
			return nil
		})
		assert.ErrorIs(t, svc.Execute(ctx, wf.ID), context.Canceled)
		assert.Equal(t, []string{"input", "strategist"}, firstRun)

		var secondRun []string
		svc.SetRunner(func(ctx context.Context, node models.Node) error {
			secondRun = append(secondRun, node.ID)
			return nil
		})
		assert.NoError(t, svc.Execute(context.Background(), wf.ID))
		// completed nodes are skipped on resume
		assert.Equal(t, []string{"writer", "output"}, secondRun)

		stored, err := store.GetWorkflow(wf.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.CompletedWorkflowStatus, stored.Status)
	})

	t.Run("RejectsMissingWorkflow", func(t *testing.T) {
		svc, _ := newWorkflowService()
		err := svc.Execute(context.Background(), 42)
		assert.ErrorIs(t, errors.Cause(err), storage.ErrNotFound)
	})
}

func TestStatus(t *testing.T) {
	svc, _ := newWorkflowService()
	wf, err := svc.CreateContract("status", "Ship the report", nil)
	assert.NoError(t, err)
	assert.NoError(t, svc.Approve(wf.ID))

	report, err := svc.Status(wf.ID)
	assert.NoError(t, err)
	assert.Equal(t, wf.ID, report.ID)
	assert.Equal(t, models.PendingWorkflowStatus, report.Status)
	assert.Equal(t, 0.0, report.Progress)
	assert.Len(t, report.DAG.Nodes, 4)
	// leaf nodes report an empty, non-nil dependency list
	assert.NotNil(t, report.DAG.Nodes[0].Dependencies)

	assert.NoError(t, svc.Execute(context.Background(), wf.ID))
	report, err = svc.Status(wf.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.CompletedWorkflowStatus, report.Status)
	assert.Equal(t, 1.0, report.Progress)
	for _, n := range report.DAG.Nodes {
		assert.Equal(t, models.CompletedNodeStatus, n.Status)
	}

	_, err = svc.Status(7)
	assert.ErrorIs(t, errors.Cause(err), storage.ErrNotFound)
}

func TestNodeService(t *testing.T) {
	store := storage.NewMockStore()
	ns := service.NewNodeService(store, logger{})

	dep := models.Node{ID: "dep", WorkflowID: 1, Status: models.PendingNodeStatus}
	node := models.Node{ID: "work", WorkflowID: 1, Status: models.PendingNodeStatus, Dependencies: []string{"dep"}}
	assert.NoError(t, ns.SaveNode(dep))
	assert.NoError(t, ns.SaveNode(node))

	canRun, err := ns.CanRunNode(node)
	assert.NoError(t, err)
	assert.False(t, canRun)

	assert.NoError(t, ns.UpdateNodeStatus("dep", 1, models.CompletedNodeStatus, ""))
	canRun, err = ns.CanRunNode(node)
	assert.NoError(t, err)
	assert.True(t, canRun)

	_, err = ns.CanRunNode(models.Node{ID: "orphan", WorkflowID: 1, Dependencies: []string{"ghost"}})
	assert.Error(t, err)
}

func TestDataRoomService(t *testing.T) {
	store := storage.NewMockStore()
	svc := service.NewDataRoomService(store, logger{})

	t.Run("CreateAndList", func(t *testing.T) {
		room, err := svc.Create("Client docs", "gdrive", json.RawMessage(`{"folder":"clients"}`), true)
		assert.NoError(t, err)
		assert.NotEmpty(t, room.ID)
		assert.True(t, room.ReadOnly)

		rooms, err := svc.List()
		assert.NoError(t, err)
		assert.Len(t, rooms, 1)

		got, err := svc.Get(room.ID)
		assert.NoError(t, err)
		assert.Equal(t, "Client docs", got.Name)
	})

	t.Run("DefaultsEmptyConfig", func(t *testing.T) {
		room, err := svc.Create("Notes", "notion", nil, false)
		assert.NoError(t, err)
		assert.Equal(t, json.RawMessage("{}"), room.Config)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.Create("", "gdrive", nil, false)
		assert.Error(t, err)

		_, err = svc.Create("x", "mystery", nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider 'mystery'")

		_, err = svc.Create("x", "local", json.RawMessage("{not json"), false)
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		room, err := svc.Create("Temp", "local", nil, false)
		assert.NoError(t, err)
		assert.NoError(t, svc.Delete(room.ID))
		_, err = svc.Get(room.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, svc.Delete(room.ID), storage.ErrNotFound)
	})
}
