package apps

// UpsertAppRequest represents a request to register or update an application
type UpsertAppRequest struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
	Domain  string `json:"domain"`
	Port    int    `json:"port"`
}

// deployPayload is the action body posted to the agent's deploy endpoint
type deployPayload struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
	Domain  string `json:"domain,omitempty"`
	Port    int    `json:"port,omitempty"`
}
