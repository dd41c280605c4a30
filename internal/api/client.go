package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is a REST client for a single shotops agent.
type Client struct {
	baseURL string
	token   string
	http    *resty.Client
}

// NewClient creates a client for the agent at baseURL, authenticating
// every request with the agent's API token.
func NewClient(baseURL, token string) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}

	client.http = resty.New().
		SetHeader("User-Agent", "shotops-dashboard/1.0").
		SetHeader("X-Api-Token", token).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on 429 (Too Many Requests) and 5xx server errors
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	return client
}

// Get performs a GET request against the agent API
func (c *Client) Get(endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.http.R()
	if params != nil {
		req.SetQueryParams(params)
	}
	return req.Get(c.buildURL(endpoint))
}

// Post performs a POST request against the agent API
func (c *Client) Post(endpoint string, payload interface{}) (*resty.Response, error) {
	return c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.buildURL(endpoint))
}

// Delete performs a DELETE request against the agent API
func (c *Client) Delete(endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.http.R()
	if params != nil {
		req.SetQueryParams(params)
	}
	return req.Delete(c.buildURL(endpoint))
}

// Health is the agent's health response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime"`
}

// CheckHealth calls the agent's health endpoint.
func (c *Client) CheckHealth() (*Health, error) {
	resp, err := c.Get("api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("agent unreachable: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("agent health check failed: %s", resp.Status())
	}

	var health Health
	if err := json.Unmarshal(resp.Body(), &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

// AppLogs is the agent's log bundle for one application: the accumulated
// operation log text plus the coarse status field the progress tracker
// classifies.
type AppLogs struct {
	Logs   string `json:"logs"`
	Status string `json:"status"`
}

// FetchAppLogs retrieves the current logs and status for an application.
func (c *Client) FetchAppLogs(appName string) (*AppLogs, error) {
	endpoint := fmt.Sprintf("api/apps/%s/logs", appName)

	resp, err := c.Get(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch app logs: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("agent returned %s for app logs", resp.Status())
	}

	var bundle AppLogs
	if err := json.Unmarshal(resp.Body(), &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse log response: %w", err)
	}
	return &bundle, nil
}

// SystemInfo describes the host an agent runs on.
type SystemInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	DockerVersion string `json:"docker_version"`
	CPUCount      int    `json:"cpu_count"`
	MemoryMB      int64  `json:"memory_mb"`
}

// FetchSystemInfo retrieves host details from the agent.
func (c *Client) FetchSystemInfo() (*SystemInfo, error) {
	resp, err := c.Get("api/system/info", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch system info: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("agent returned %s for system info", resp.Status())
	}

	var info SystemInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, fmt.Errorf("failed to parse system info: %w", err)
	}
	return &info, nil
}

// Token returns the agent API token, for callers that open their own
// connections (the terminal relay dials the agent's websocket directly).
func (c *Client) Token() string {
	return c.token
}

// WebSocketURL converts the agent base URL to its websocket form for the
// given endpoint.
func (c *Client) WebSocketURL(endpoint string) string {
	url := c.buildURL(endpoint)
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// SetTimeout allows customizing the timeout for specific operations
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}
