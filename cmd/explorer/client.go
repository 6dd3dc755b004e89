package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/rover-grid/fleet/service"
)

// Client drives rovers through the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
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

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// Grid returns the active grid
func (c *Client) Grid(ctx context.Context) (*service.GridInfo, error) {
	var grid service.GridInfo
	if err := c.do(ctx, http.MethodGet, "/api/grid", nil, &grid); err != nil {
		return nil, err
	}
	return &grid, nil
}

// LoadGrid activates a grid from the server's catalog
func (c *Client) LoadGrid(ctx context.Context, name string) (*service.GridInfo, error) {
	var grid service.GridInfo
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/api/grid/load", body, &grid); err != nil {
		return nil, err
	}
	return &grid, nil
}

// Deploy places a rover and returns its state
func (c *Client) Deploy(ctx context.Context, req service.DeployRequest) (*service.RoverInfo, error) {
	var resp struct {
		Message string             `json:"message"`
		Rover   *service.RoverInfo `json:"rover"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rovers/deploy", req, &resp); err != nil {
		return nil, err
	}
	if resp.Rover == nil {
		return nil, fmt.Errorf("deploy response has no rover")
	}
	return resp.Rover, nil
}

// Run executes a command program such as "F3 R F2"
func (c *Client) Run(ctx context.Context, roverID, program string) (*service.SequenceResult, error) {
	var result service.SequenceResult
	path := "/api/rovers/" + url.PathEscape(roverID) + "/commands"
	body := map[string]string{"commands": program}
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a rover
func (c *Client) Delete(ctx context.Context, roverID string) error {
	return c.do(ctx, http.MethodDelete, "/api/rovers/"+url.PathEscape(roverID), nil, nil)
}
