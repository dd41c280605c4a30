package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/sayanm085/shotops-dashboard/internal/api"
	"github.com/sayanm085/shotops-dashboard/internal/crypto"
	"github.com/sayanm085/shotops-dashboard/internal/models"
)

const defaultAgentPort = 8088

// Service manages the registry of agent hosts
type Service struct {
	db      *gorm.DB
	ctx     context.Context
	clients *api.ClientCache
}

// NewService creates a new agents service
func NewService(db *gorm.DB, ctx context.Context) *Service {
	return &Service{
		db:      db,
		ctx:     ctx,
		clients: api.NewClientCache(32),
	}
}

// List returns all registered agents
func (s *Service) List() ([]models.Agent, error) {
	var agents []models.Agent
	if err := s.db.Order("name").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

// Get retrieves a specific agent by ID
func (s *Service) Get(agentID string) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.Where("id = ?", agentID).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// Create registers a new agent
// NOTE: Frontend should call TestConnection() before calling this method
// to validate the host and token before saving to database
func (s *Service) Create(req UpsertAgentRequest) (*models.Agent, error) {
	// Validate encryption is initialized
	if !crypto.IsInitialized() {
		return nil, errors.New("encryption system not initialized - cannot save agents")
	}

	if req.Name == "" || req.Host == "" {
		return nil, errors.New("agent name and host are required")
	}
	if req.Port == 0 {
		req.Port = defaultAgentPort
	}

	// Encrypt the API token
	tokenEnc, err := crypto.EncryptToken(req.APIToken)
	if err != nil {
		return nil, err
	}

	agent := &models.Agent{
		Name:        req.Name,
		Host:        req.Host,
		Port:        req.Port,
		UseTLS:      req.UseTLS,
		APITokenEnc: tokenEnc,
		Status:      "unknown",
	}

	if err := s.db.Create(agent).Error; err != nil {
		return nil, err
	}

	log.Printf("Registered agent %s (%s)", agent.Name, agent.BaseURL())
	return agent, nil
}

// Update updates an existing agent
func (s *Service) Update(agentID string, req UpsertAgentRequest) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.Where("id = ?", agentID).First(&agent).Error; err != nil {
		return nil, err
	}

	// Update fields
	agent.Name = req.Name
	agent.Host = req.Host
	if req.Port != 0 {
		agent.Port = req.Port
	}
	agent.UseTLS = req.UseTLS

	// Encrypt token if provided
	if req.APIToken != "" {
		tokenEnc, err := crypto.EncryptToken(req.APIToken)
		if err != nil {
			return nil, err
		}
		agent.APITokenEnc = tokenEnc
	}

	if err := s.db.Save(&agent).Error; err != nil {
		return nil, err
	}

	// Connection details changed, drop any cached client
	s.clients.Invalidate(agentID)

	return &agent, nil
}

// Delete removes an agent and the app and database records registered on it.
// Remote resources on the host are not touched.
func (s *Service) Delete(agentID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_id = ?", agentID).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		if err := tx.Where("agent_id = ?", agentID).Delete(&models.ManagedDatabase{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", agentID).Delete(&models.Agent{}).Error
	})
	if err != nil {
		return err
	}

	s.clients.Invalidate(agentID)
	return nil
}

// ClientFor returns an API client for the agent, reusing cached clients
// so the token is only decrypted once per agent
func (s *Service) ClientFor(agentID string) (*api.Client, error) {
	if client, ok := s.clients.Get(agentID); ok {
		return client, nil
	}

	agent, err := s.Get(agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent: %w", err)
	}

	token, err := crypto.DecryptToken(agent.APITokenEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	client := api.NewClient(agent.BaseURL(), token)
	s.clients.Put(agentID, client)
	return client, nil
}

// TestConnection tests an agent connection without saving to database
func (s *Service) TestConnection(req TestAgentRequest) TestAgentResponse {
	if req.Port == 0 {
		req.Port = defaultAgentPort
	}

	client := api.NewClient(req.baseURL(), req.APIToken)
	client.SetTimeout(10 * time.Second)

	resp, err := client.Get("api/health", nil)
	if err != nil {
		return TestAgentResponse{
			Success: false,
			Error:   fmt.Sprintf("Connection failed: %v", err),
		}
	}

	// Check HTTP status code
	if !resp.IsSuccess() {
		var errorMsg string
		switch resp.StatusCode() {
		case 401:
			errorMsg = "Invalid API token"
		case 403:
			errorMsg = "Access forbidden (check token permissions)"
		case 404:
			errorMsg = "Agent not found at this address (check host and port)"
		default:
			errorMsg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status())
		}
		return TestAgentResponse{
			Success: false,
			Error:   errorMsg,
		}
	}

	// Parse health info from response
	var health api.Health
	if err := json.Unmarshal(resp.Body(), &health); err != nil {
		// Connection succeeded but couldn't parse health info
		return TestAgentResponse{Success: true}
	}

	return TestAgentResponse{
		Success: true,
		Version: health.Version,
		Uptime:  health.Uptime,
	}
}

// SystemInfo retrieves host details from an agent
func (s *Service) SystemInfo(agentID string) (*api.SystemInfo, error) {
	client, err := s.ClientFor(agentID)
	if err != nil {
		return nil, err
	}
	return client.FetchSystemInfo()
}

// RefreshStatus probes every registered agent and updates its stored
// status, version, and last seen time. Probes run concurrently.
func (s *Service) RefreshStatus() (*StatusSummary, error) {
	if s.ctx != nil && s.ctx.Err() != nil {
		return nil, s.ctx.Err()
	}

	var agents []models.Agent
	if err := s.db.Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	summary := &StatusSummary{Checked: len(agents)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := range agents {
		agent := agents[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			online := s.probe(&agent)

			mu.Lock()
			if online {
				summary.Online++
			} else {
				summary.Offline++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return summary, nil
}

// probe checks one agent's health and persists the result
func (s *Service) probe(agent *models.Agent) bool {
	client, err := s.ClientFor(agent.ID)
	if err != nil {
		log.Printf("Agent %s: %v", agent.Name, err)
		s.markStatus(agent.ID, "offline", "")
		return false
	}

	health, err := client.CheckHealth()
	if err != nil {
		s.markStatus(agent.ID, "offline", "")
		return false
	}

	s.markStatus(agent.ID, "online", health.Version)
	return true
}

// markStatus persists the probe outcome for an agent
func (s *Service) markStatus(agentID, status, version string) {
	updates := map[string]interface{}{"status": status}
	if version != "" {
		updates["version"] = version
	}
	if status == "online" {
		now := time.Now()
		updates["last_seen_at"] = &now
	}

	if err := s.db.Model(&models.Agent{}).Where("id = ?", agentID).Updates(updates).Error; err != nil {
		log.Printf("Failed to update agent %s status: %v", agentID, err)
	}
}
