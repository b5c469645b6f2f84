package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	guildhttp "github.com/ArnovZ080/guildboard/internal/http"
	"github.com/ArnovZ080/guildboard/internal/log"
	"github.com/ArnovZ080/guildboard/pkg/client"
	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/service"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/stretchr/testify/assert"
)

// newServer spins up the real handler over an in-memory store so the
// client is exercised against the exact wire format it will see.
func newServer() *httptest.Server {
	store := storage.NewMockStore()
	logger := log.GetLogger()
	srv := guildhttp.NewServer(
		service.NewWorkflowService(store, logger),
		service.NewDataRoomService(store, logger),
	)
	return httptest.NewServer(srv.Handler())
}

func TestClientWorkflows(t *testing.T) {
	ts := newServer()
	defer ts.Close()
	c := client.New(ts.URL)
	ctx := context.Background()

	created, err := c.CreateContract(ctx, client.CreateContractRequest{
		Name:      "Launch plan",
		Objective: "Ship v1",
	})
	assert.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Len(t, created.WorkflowDefinition.Tasks, 4)

	assert.NoError(t, c.ApproveWorkflow(ctx, created.ID))
	assert.NoError(t, c.ExecuteWorkflow(ctx, created.ID))

	report, err := c.WorkflowStatus(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, created.ID, report.ID)
	assert.Equal(t, models.CompletedWorkflowStatus, report.Status)
	assert.Equal(t, 1.0, report.Progress)

	workflows, err := c.ListWorkflows(ctx)
	assert.NoError(t, err)
	assert.Len(t, workflows, 1)
}

func TestClientNotFound(t *testing.T) {
	ts := newServer()
	defer ts.Close()
	c := client.New(ts.URL)

	_, err := c.WorkflowStatus(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = c.DeleteDataRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClientErrorEnvelope(t *testing.T) {
	ts := newServer()
	defer ts.Close()
	c := client.New(ts.URL)

	_, err := c.CreateContract(context.Background(), client.CreateContractRequest{
		Name: "cycle",
		Tasks: []service.TaskSpec{
			{TaskID: "a", Dependencies: []string{"b"}},
			{TaskID: "b", Dependencies: []string{"a"}},
		},
	})
	assert.Error(t, err)
	// the server's error message surfaces in the client error
	assert.Contains(t, err.Error(), "invalid workflow definition")
}

func TestClientDataRooms(t *testing.T) {
	ts := newServer()
	defer ts.Close()
	c := client.New(ts.URL)
	ctx := context.Background()

	room, err := c.CreateDataRoom(ctx, client.CreateDataRoomRequest{
		Name:     "Briefs",
		Provider: "dropbox",
		Config:   json.RawMessage(`{"path":"/briefs"}`),
		ReadOnly: true,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, room.ID)

	rooms, err := c.ListDataRooms(ctx)
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)

	assert.NoError(t, c.DeleteDataRoom(ctx, room.ID))
	rooms, err = c.ListDataRooms(ctx)
	assert.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestClientStartOAuth(t *testing.T) {
	ts := newServer()
	defer ts.Close()
	c := client.New(ts.URL)

	conn, err := c.StartOAuth(context.Background(), "notion")
	assert.NoError(t, err)
	assert.Equal(t, "notion", conn.Provider)
	assert.NotEmpty(t, conn.AuthURL)

	_, err = c.StartOAuth(context.Background(), "mystery")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestClientWithHTTPClient(t *testing.T) {
	called := false
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer fake.Close()

	c := client.New(fake.URL+"/", client.WithHTTPClient(fake.Client()))
	_, err := c.ListWorkflows(context.Background())
	assert.NoError(t, err)
	assert.True(t, called)
}
