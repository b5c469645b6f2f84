// Package client is the typed HTTP client for the guildboard /api
// surface. The status poller and the CLI are its consumers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/service"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/pkg/errors"
)

// Client talks to a guildboard server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateContractRequest is the body of POST /api/workflows/contracts.
type CreateContractRequest struct {
	Name      string             `json:"name"`
	Objective string             `json:"objective"`
	Tasks     []service.TaskSpec `json:"tasks,omitempty"`
}

// ContractResponse is the server's reply to contract creation.
type ContractResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	WorkflowDefinition struct {
		Tasks []service.TaskSpec `json:"tasks"`
	} `json:"workflow_definition"`
}

// WorkflowStatus fetches the status report of one workflow.
func (c *Client) WorkflowStatus(ctx context.Context, id int64) (models.StatusReport, error) {
	var report models.StatusReport
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/workflows/%d/status", id), nil, &report)
	if err != nil {
		return models.StatusReport{}, errors.Wrapf(err, "workflow %d status", id)
	}
	return report, nil
}

// ListWorkflows fetches all workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	var workflows []models.Workflow
	if err := c.do(ctx, http.MethodGet, "/api/workflows", nil, &workflows); err != nil {
		return nil, errors.Wrap(err, "list workflows")
	}
	return workflows, nil
}

// CreateContract submits a workflow contract.
func (c *Client) CreateContract(ctx context.Context, req CreateContractRequest) (ContractResponse, error) {
	var resp ContractResponse
	if err := c.do(ctx, http.MethodPost, "/api/workflows/contracts", req, &resp); err != nil {
		return ContractResponse{}, errors.Wrap(err, "create contract")
	}
	return resp, nil
}

// ExecuteWorkflow triggers execution of an approved workflow.
func (c *Client) ExecuteWorkflow(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/workflows/%d/execute", id), nil, nil); err != nil {
		return errors.Wrapf(err, "execute workflow %d", id)
	}
	return nil
}

// ApproveWorkflow approves a workflow contract.
func (c *Client) ApproveWorkflow(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/workflows/%d/approve", id), nil, nil); err != nil {
		return errors.Wrapf(err, "approve workflow %d", id)
	}
	return nil
}

// ListDataRooms fetches all data room records.
func (c *Client) ListDataRooms(ctx context.Context) ([]models.DataRoom, error) {
	var rooms []models.DataRoom
	if err := c.do(ctx, http.MethodGet, "/api/datarooms/", nil, &rooms); err != nil {
		return nil, errors.Wrap(err, "list data rooms")
	}
	return rooms, nil
}

// CreateDataRoomRequest is the body of POST /api/datarooms/.
type CreateDataRoomRequest struct {
	Name     string          `json:"name"`
	Provider string          `json:"provider"`
	Config   json.RawMessage `json:"config,omitempty"`
	ReadOnly bool            `json:"read_only"`
}

// CreateDataRoom creates a data room record.
func (c *Client) CreateDataRoom(ctx context.Context, req CreateDataRoomRequest) (models.DataRoom, error) {
	var room models.DataRoom
	if err := c.do(ctx, http.MethodPost, "/api/datarooms/", req, &room); err != nil {
		return models.DataRoom{}, errors.Wrap(err, "create data room")
	}
	return room, nil
}

// DeleteDataRoom deletes a data room by ID.
func (c *Client) DeleteDataRoom(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/datarooms/"+id, nil, nil); err != nil {
		return errors.Wrapf(err, "delete data room %s", id)
	}
	return nil
}

// StartOAuth begins the stubbed OAuth flow for a provider.
func (c *Client) StartOAuth(ctx context.Context, provider string) (models.OAuthConnection, error) {
	var conn models.OAuthConnection
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/oauth/%s/start", provider), nil, &conn); err != nil {
		return models.OAuthConnection{}, errors.Wrapf(err, "start oauth for %s", provider)
	}
	return conn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusNotFound {
			return errors.Wrapf(storage.ErrNotFound, "%s %s", method, path)
		}
		return errors.Errorf("%s %s: %s", method, path, readError(resp.Body, resp.StatusCode))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return nil
}

func readError(body io.Reader, status int) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fmt.Sprintf("unexpected status %d", status)
}
