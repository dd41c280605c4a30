package agents

import "fmt"

// UpsertAgentRequest represents a request to register or update an agent
type UpsertAgentRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	UseTLS   bool   `json:"use_tls"`
	APIToken string `json:"api_token"` // Plain text, will be encrypted
}

// TestAgentRequest represents a connection test against an unsaved agent
type TestAgentRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	UseTLS   bool   `json:"use_tls"`
	APIToken string `json:"api_token"`
}

// baseURL builds the HTTP base URL for the test target
func (req TestAgentRequest) baseURL() string {
	scheme := "http"
	if req.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, req.Host, req.Port)
}

// TestAgentResponse represents the connection test result
type TestAgentResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Version string `json:"version,omitempty"`
	Uptime  int64  `json:"uptime,omitempty"`
}

// StatusSummary describes the outcome of one status sweep
type StatusSummary struct {
	Checked int `json:"checked"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
}
