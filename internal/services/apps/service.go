package apps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/sayanm085/shotops-dashboard/internal/api"
	"github.com/sayanm085/shotops-dashboard/internal/models"
	"github.com/sayanm085/shotops-dashboard/internal/services/agents"
	"github.com/sayanm085/shotops-dashboard/internal/services/operations"
)

// Service manages application records and drives their remote operations.
// Every deploy, stop, and delete is posted to the app's agent and then
// followed through the operations tracker; the app's status column
// mirrors the terminal outcome of the run.
type Service struct {
	db      *gorm.DB
	ctx     context.Context
	agents  *agents.Service
	tracker *operations.Tracker
}

// NewService creates a new apps service
func NewService(db *gorm.DB, ctx context.Context, agentsSvc *agents.Service, tracker *operations.Tracker) *Service {
	return &Service{
		db:      db,
		ctx:     ctx,
		agents:  agentsSvc,
		tracker: tracker,
	}
}

// List returns applications, optionally filtered by agent
func (s *Service) List(agentID string) ([]models.Application, error) {
	query := s.db.Order("name")
	if agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// Get retrieves a specific application by ID
func (s *Service) Get(appID string) (*models.Application, error) {
	var app models.Application
	if err := s.db.Where("id = ?", appID).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// Create registers a new application on an agent
func (s *Service) Create(req UpsertAppRequest) (*models.Application, error) {
	if req.AgentID == "" || req.Name == "" {
		return nil, errors.New("agent and app name are required")
	}

	// The agent must exist before apps can be registered on it
	if _, err := s.agents.Get(req.AgentID); err != nil {
		return nil, fmt.Errorf("agent not found: %w", err)
	}

	branch := req.Branch
	if branch == "" {
		branch = "main"
	}

	app := &models.Application{
		AgentID: req.AgentID,
		Name:    req.Name,
		RepoURL: req.RepoURL,
		Branch:  branch,
		Domain:  req.Domain,
		Port:    req.Port,
		Status:  "pending",
	}

	if err := s.db.Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// Update updates an application's registration details
func (s *Service) Update(appID string, req UpsertAppRequest) (*models.Application, error) {
	var app models.Application
	if err := s.db.Where("id = ?", appID).First(&app).Error; err != nil {
		return nil, err
	}

	if req.Name != "" {
		app.Name = req.Name
	}
	if req.RepoURL != "" {
		app.RepoURL = req.RepoURL
	}
	if req.Branch != "" {
		app.Branch = req.Branch
	}
	app.Domain = req.Domain
	if req.Port != 0 {
		app.Port = req.Port
	}

	if err := s.db.Save(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// Deploy asks the agent to deploy the app and starts progress tracking.
// A run already active for the app is superseded by the new one.
func (s *Service) Deploy(appID string) (*operations.Snapshot, error) {
	app, client, err := s.appClient(appID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("api/apps/%s/deploy", app.Name)
	resp, err := client.Post(endpoint, deployPayload{
		RepoURL: app.RepoURL,
		Branch:  app.Branch,
		Domain:  app.Domain,
		Port:    app.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start deploy: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("agent rejected deploy: %s", resp.Status())
	}

	s.setStatus(app.ID, "deploying")
	log.Printf("Deploy started for app %s", app.Name)

	return s.track(app, client, operations.KindDeploy, fmt.Sprintf("Deploying %s", app.Name), nil)
}

// Stop asks the agent to stop the app and starts progress tracking
func (s *Service) Stop(appID string) (*operations.Snapshot, error) {
	app, client, err := s.appClient(appID)
	if err != nil {
		return nil, err
	}

	if err := s.postStop(client, app); err != nil {
		return nil, err
	}
	log.Printf("Stop started for app %s", app.Name)

	return s.track(app, client, operations.KindStop, fmt.Sprintf("Stopping %s", app.Name), nil)
}

// Delete asks the agent to remove the app. The application record is
// removed only after the remote deletion completes successfully.
func (s *Service) Delete(appID string) (*operations.Snapshot, error) {
	app, client, err := s.appClient(appID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("api/apps/%s", app.Name)
	resp, err := client.Delete(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start delete: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("agent rejected delete: %s", resp.Status())
	}
	log.Printf("Delete started for app %s", app.Name)

	return s.track(app, client, operations.KindDelete, fmt.Sprintf("Deleting %s", app.Name), nil)
}

// Restart stops the app and redeploys it once the stop completes. The
// deploy run supersedes the stop run's progress view for the app.
func (s *Service) Restart(appID string) (*operations.Snapshot, error) {
	app, client, err := s.appClient(appID)
	if err != nil {
		return nil, err
	}

	if err := s.postStop(client, app); err != nil {
		return nil, err
	}
	log.Printf("Restart started for app %s", app.Name)

	return s.track(app, client, operations.KindStop, fmt.Sprintf("Stopping %s", app.Name), func(stopped bool) {
		if !stopped {
			log.Printf("Restart of %s aborted: stop did not complete", app.Name)
			return
		}
		if _, err := s.Deploy(appID); err != nil {
			log.Printf("Restart of %s: redeploy failed: %v", app.Name, err)
		}
	})
}

// GetOperationProgress returns the live progress view for the app's
// current run, terminal runs included until the view is closed
func (s *Service) GetOperationProgress(appID string) (*operations.Snapshot, error) {
	snap, ok := s.tracker.Snapshot(appID)
	if !ok {
		return nil, fmt.Errorf("no operation found for app %s", appID)
	}
	return &snap, nil
}

// CloseOperation closes the progress view for the app's current run
func (s *Service) CloseOperation(appID string) {
	if h, ok := s.tracker.Get(appID); ok {
		h.Model().Close()
	}
}

// appClient loads the app and an API client for its agent
func (s *Service) appClient(appID string) (*models.Application, *api.Client, error) {
	app, err := s.Get(appID)
	if err != nil {
		return nil, nil, fmt.Errorf("app not found: %w", err)
	}

	client, err := s.agents.ClientFor(app.AgentID)
	if err != nil {
		return nil, nil, err
	}
	return app, client, nil
}

// postStop posts the stop action to the agent
func (s *Service) postStop(client *api.Client, app *models.Application) error {
	endpoint := fmt.Sprintf("api/apps/%s/stop", app.Name)
	resp, err := client.Post(endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to start stop: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("agent rejected stop: %s", resp.Status())
	}
	return nil
}

// track starts a progress run for the app and watches for its outcome
func (s *Service) track(app *models.Application, client *api.Client, kind operations.Kind, title string, after func(completed bool)) (*operations.Snapshot, error) {
	handle := s.tracker.Start(kind, app.ID, title, s.logFetcher(client, app.Name))
	go s.applyOutcome(handle, app.ID, kind, after)

	snap := handle.Model().Snapshot()
	return &snap, nil
}

// logFetcher builds the poll callback for one app on one agent
func (s *Service) logFetcher(client *api.Client, appName string) operations.FetchFunc {
	return func(ctx context.Context, target string) (operations.FetchResult, error) {
		bundle, err := client.FetchAppLogs(appName)
		if err != nil {
			return operations.FetchResult{}, err
		}
		return operations.FetchResult{Logs: bundle.Logs, Status: bundle.Status}, nil
	}
}

// applyOutcome waits for the run to finish and mirrors its terminal
// outcome onto the application record. Runs that exit without a
// terminal state (superseded, stopped, attempt budget exhausted) leave
// the record untouched.
func (s *Service) applyOutcome(handle *operations.Handle, appID string, kind operations.Kind, after func(completed bool)) {
	<-handle.Done()

	snap := handle.Model().Snapshot()
	completed := snap.Status == operations.RunCompleted.String()

	switch {
	case completed && kind == operations.KindDeploy:
		now := time.Now()
		updates := map[string]interface{}{"status": "running", "last_deploy": &now}
		if err := s.db.Model(&models.Application{}).Where("id = ?", appID).Updates(updates).Error; err != nil {
			log.Printf("Failed to update app %s after deploy: %v", appID, err)
		}

	case completed && kind == operations.KindStop:
		s.setStatus(appID, "stopped")

	case completed && kind == operations.KindDelete:
		if err := s.db.Where("id = ?", appID).Delete(&models.Application{}).Error; err != nil {
			log.Printf("Failed to remove deleted app %s: %v", appID, err)
		}

	case snap.Status == operations.RunError.String():
		s.setStatus(appID, "error")
	}

	if after != nil {
		after(completed)
	}
}

// setStatus persists an application status change
func (s *Service) setStatus(appID, status string) {
	if err := s.db.Model(&models.Application{}).Where("id = ?", appID).Update("status", status).Error; err != nil {
		log.Printf("Failed to update app %s status: %v", appID, err)
	}
}
