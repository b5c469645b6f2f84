package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ArnovZ080/guildboard/internal/log"
	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/service"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/google/uuid"
)

// Server wires the workflow and data room services to the /api surface
// consumed by the dashboard.
type Server struct {
	workflows *service.WorkflowService
	rooms     *service.DataRoomService
}

func NewServer(workflows *service.WorkflowService, rooms *service.DataRoomService) *Server {
	return &Server{workflows: workflows, rooms: rooms}
}

// StartServer builds the services over the store and serves on the port.
func StartServer(port string, store storage.Store) error {
	logger := log.GetLogger()
	srv := NewServer(
		service.NewWorkflowService(store, logger),
		service.NewDataRoomService(store, logger),
	)
	logger.Infof("Starting guildboard server on :%s", port)
	return http.ListenAndServe(":"+port, srv.Handler())
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/workflows", s.listWorkflows)
	mux.HandleFunc("POST /api/workflows/contracts", s.createContract)
	mux.HandleFunc("GET /api/workflows/{id}/status", s.workflowStatus)
	mux.HandleFunc("POST /api/workflows/{id}/execute", s.executeWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/approve", s.approveWorkflow)
	mux.HandleFunc("GET /api/datarooms/{$}", s.listDataRooms)
	mux.HandleFunc("POST /api/datarooms/{$}", s.createDataRoom)
	mux.HandleFunc("DELETE /api/datarooms/{id}", s.deleteDataRoom)
	mux.HandleFunc("POST /api/oauth/{provider}/start", s.startOAuth)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "guildboard server is running")
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors onto a consistent JSON envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func workflowID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.workflows.ListWorkflows()
	if err != nil {
		log.GetLogger().Errorf("Failed to list workflows: %v", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workflows)
}

type createContractRequest struct {
	Name      string             `json:"name"`
	Objective string             `json:"objective"`
	Tasks     []service.TaskSpec `json:"tasks,omitempty"`
}

type workflowDefinition struct {
	Tasks []service.TaskSpec `json:"tasks"`
}

type createContractResponse struct {
	ID                 int64              `json:"id"`
	Status             string             `json:"status"`
	WorkflowDefinition workflowDefinition `json:"workflow_definition"`
}

func (s *Server) createContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		log.GetLogger().Error("Missing 'name' in POST /api/workflows/contracts")
		writeError(w, http.StatusBadRequest, "missing 'name'")
		return
	}

	wf, err := s.workflows.CreateContract(req.Name, req.Objective, req.Tasks)
	if err != nil {
		log.GetLogger().Errorf("Failed to create workflow contract: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks := make([]service.TaskSpec, len(wf.Nodes))
	for i, n := range wf.Nodes {
		deps := n.Dependencies
		if deps == nil {
			deps = []string{}
		}
		tasks[i] = service.TaskSpec{TaskID: n.ID, Agent: n.Agent, Description: n.Description, Dependencies: deps}
	}
	writeJSON(w, http.StatusCreated, createContractResponse{
		ID:                 wf.ID,
		Status:             string(wf.Status),
		WorkflowDefinition: workflowDefinition{Tasks: tasks},
	})
}

func (s *Server) workflowStatus(w http.ResponseWriter, r *http.Request) {
	id, err := workflowID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	report, err := s.workflows.Status(id)
	if err != nil {
		log.GetLogger().Errorf("Failed to build status for workflow %d: %v", id, err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type okResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func (s *Server) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := workflowID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	if err := s.workflows.Execute(r.Context(), id); err != nil {
		log.GetLogger().Errorf("Failed to execute workflow %d: %v", id, err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{ID: id, Message: fmt.Sprintf("Workflow %d executed", id)})
}

func (s *Server) approveWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := workflowID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	if err := s.workflows.Approve(id); err != nil {
		log.GetLogger().Errorf("Failed to approve workflow %d: %v", id, err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{ID: id, Message: fmt.Sprintf("Workflow %d approved", id)})
}

func (s *Server) listDataRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.List()
	if err != nil {
		log.GetLogger().Errorf("Failed to list data rooms: %v", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type createDataRoomRequest struct {
	Name     string          `json:"name"`
	Provider string          `json:"provider"`
	Config   json.RawMessage `json:"config"`
	ReadOnly bool            `json:"read_only"`
}

func (s *Server) createDataRoom(w http.ResponseWriter, r *http.Request) {
	var req createDataRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	room, err := s.rooms.Create(req.Name, req.Provider, req.Config, req.ReadOnly)
	if err != nil {
		log.GetLogger().Errorf("Failed to create data room: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) deleteDataRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.rooms.Delete(id); err != nil {
		log.GetLogger().Errorf("Failed to delete data room %s: %v", id, err)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startOAuth is a stub: it hands back a provider auth URL and state
// without performing any token exchange.
func (s *Server) startOAuth(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	if !service.KnownProviders[provider] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider '%s'", provider))
		return
	}
	state := uuid.NewString()
	writeJSON(w, http.StatusOK, models.OAuthConnection{
		Provider: provider,
		AuthURL:  fmt.Sprintf("https://auth.example.com/%s/authorize?state=%s", provider, state),
		State:    state,
	})
}
