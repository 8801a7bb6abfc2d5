package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/me/ticksched/pkg/model"
)

// Client is an HTTP client for the tickschedd API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a tickschedd API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// apiResponse is the parsed envelope.
type apiResponse struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// do performs an HTTP request and returns the parsed envelope.
func (c *Client) do(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	url := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		c.Logger.Debug("HTTP request body", "body", string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Logger.Debug("HTTP request", "method", method, "url", url)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(respBody))

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w\nbody: %s", resp.StatusCode, err, string(respBody))
	}

	if apiResp.Status == "error" && apiResp.Error != nil {
		return &apiResp, apiResp.Error
	}

	return &apiResp, nil
}

// Get performs a GET request.
func (c *Client) Get(path string) (*apiResponse, error) {
	return c.do(context.Background(), "GET", path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(path string, body any) (*apiResponse, error) {
	return c.do(context.Background(), "POST", path, body)
}

// Snapshot fetches the slot table and the counters.
func (c *Client) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot

	resp, err := c.do(ctx, "GET", "/api/v1/stats", nil)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(resp.Data, &snap.Stats); err != nil {
		return snap, fmt.Errorf("parse stats: %w", err)
	}

	resp, err = c.do(ctx, "GET", "/api/v1/slots", nil)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(resp.Data, &snap.Slots); err != nil {
		return snap, fmt.Errorf("parse slots: %w", err)
	}
	return snap, nil
}

// ControlTask posts op (pause, continue or disable) for the named task.
func (c *Client) ControlTask(ctx context.Context, op, name string) error {
	_, err := c.do(ctx, "POST", "/api/v1/tasks/"+url.PathEscape(name)+"/"+op, nil)
	return err
}
