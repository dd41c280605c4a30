package apps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sayanm085/shotops-dashboard/internal/api"
	"github.com/sayanm085/shotops-dashboard/internal/models"
	"github.com/sayanm085/shotops-dashboard/internal/services/agents"
	"github.com/sayanm085/shotops-dashboard/internal/services/operations"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Agent{}, &models.Application{}))
	return db
}

func createAgent(t *testing.T, db *gorm.DB) *models.Agent {
	t.Helper()
	agent := &models.Agent{
		Name:        "vps-1",
		Host:        "10.0.0.5",
		Port:        8088,
		APITokenEnc: "encrypted",
	}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func createApp(t *testing.T, db *gorm.DB, agentID, name string) *models.Application {
	t.Helper()
	app := &models.Application{
		AgentID: agentID,
		Name:    name,
		RepoURL: "https://github.com/acme/" + name,
		Branch:  "main",
		Status:  "pending",
	}
	require.NoError(t, db.Create(app).Error)
	return app
}

func TestCreate(t *testing.T) {
	t.Run("Should require agent and app name", func(t *testing.T) {
		db := setupDB(t)
		service := NewService(db, context.Background(), agents.NewService(db, context.Background()), nil)

		_, err := service.Create(UpsertAppRequest{Name: "shop-api"})
		assert.Error(t, err)

		_, err = service.Create(UpsertAppRequest{AgentID: "agent-1"})
		assert.Error(t, err)
	})

	t.Run("Should reject registration on an unknown agent", func(t *testing.T) {
		db := setupDB(t)
		service := NewService(db, context.Background(), agents.NewService(db, context.Background()), nil)

		_, err := service.Create(UpsertAppRequest{AgentID: "missing", Name: "shop-api"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agent not found")
	})

	t.Run("Should default branch to main and status to pending", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		service := NewService(db, context.Background(), agents.NewService(db, context.Background()), nil)

		app, err := service.Create(UpsertAppRequest{
			AgentID: agent.ID,
			Name:    "shop-api",
			RepoURL: "https://github.com/acme/shop-api",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, app.ID)
		assert.Equal(t, "main", app.Branch)
		assert.Equal(t, "pending", app.Status)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("Should keep fields the request leaves empty", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")
		app.Port = 3000
		app.Domain = "shop.example.com"
		require.NoError(t, db.Save(app).Error)

		service := NewService(db, context.Background(), nil, nil)

		updated, err := service.Update(app.ID, UpsertAppRequest{Branch: "develop", Domain: "shop.example.com"})
		require.NoError(t, err)

		assert.Equal(t, "shop-api", updated.Name)
		assert.Equal(t, "develop", updated.Branch)
		assert.Equal(t, 3000, updated.Port)
	})

	t.Run("Should allow clearing the domain", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")
		app.Domain = "shop.example.com"
		require.NoError(t, db.Save(app).Error)

		service := NewService(db, context.Background(), nil, nil)

		updated, err := service.Update(app.ID, UpsertAppRequest{})
		require.NoError(t, err)
		assert.Empty(t, updated.Domain)
	})

	t.Run("Should fail for an unknown app", func(t *testing.T) {
		db := setupDB(t)
		service := NewService(db, context.Background(), nil, nil)

		_, err := service.Update("missing", UpsertAppRequest{Name: "x"})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestList(t *testing.T) {
	t.Run("Should filter by agent and order by name", func(t *testing.T) {
		db := setupDB(t)
		agent1 := createAgent(t, db)
		agent2 := &models.Agent{Name: "vps-2", Host: "10.0.0.6", Port: 8088, APITokenEnc: "encrypted"}
		require.NoError(t, db.Create(agent2).Error)

		createApp(t, db, agent1.ID, "web")
		createApp(t, db, agent1.ID, "api")
		createApp(t, db, agent2.ID, "blog")

		service := NewService(db, context.Background(), nil, nil)

		all, err := service.List("")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "api", all[0].Name)
		assert.Equal(t, "blog", all[1].Name)
		assert.Equal(t, "web", all[2].Name)

		mine, err := service.List(agent1.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 2)
	})
}

func TestApplyOutcome(t *testing.T) {
	newTracker := func() *operations.Tracker {
		return operations.NewTracker(operations.Config{Interval: 5 * time.Millisecond, MaxAttempts: 20})
	}

	t.Run("Should mark the app running after a completed deploy", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := newTracker()
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Deployment success", Status: "running"}, nil
		}
		handle := tracker.Start(operations.KindDeploy, app.ID, "Deploying shop-api", fetch)
		service.applyOutcome(handle, app.ID, operations.KindDeploy, nil)

		var got models.Application
		require.NoError(t, db.First(&got, "id = ?", app.ID).Error)
		assert.Equal(t, "running", got.Status)
		require.NotNil(t, got.LastDeploy)
		assert.WithinDuration(t, time.Now(), *got.LastDeploy, time.Minute)
	})

	t.Run("Should mark the app stopped after a completed stop", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := newTracker()
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Containers stopped", Status: "stopped"}, nil
		}
		handle := tracker.Start(operations.KindStop, app.ID, "Stopping shop-api", fetch)
		service.applyOutcome(handle, app.ID, operations.KindStop, nil)

		var got models.Application
		require.NoError(t, db.First(&got, "id = ?", app.ID).Error)
		assert.Equal(t, "stopped", got.Status)
	})

	t.Run("Should remove the record after a completed delete", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := newTracker()
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Deleted app and volumes", Status: "deleted"}, nil
		}
		handle := tracker.Start(operations.KindDelete, app.ID, "Deleting shop-api", fetch)
		service.applyOutcome(handle, app.ID, operations.KindDelete, nil)

		var got models.Application
		err := db.First(&got, "id = ?", app.ID).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("Should mark the app error when the run fails", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := newTracker()
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Deploy failed: port is already allocated", Status: "error"}, nil
		}
		handle := tracker.Start(operations.KindDeploy, app.ID, "Deploying shop-api", fetch)
		service.applyOutcome(handle, app.ID, operations.KindDeploy, nil)

		var got models.Application
		require.NoError(t, db.First(&got, "id = ?", app.ID).Error)
		assert.Equal(t, "error", got.Status)
	})

	t.Run("Should leave the record untouched when the run never completes", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := operations.NewTracker(operations.Config{Interval: 2 * time.Millisecond, MaxAttempts: 3})
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Building layers", Status: "deploying"}, nil
		}
		handle := tracker.Start(operations.KindDeploy, app.ID, "Deploying shop-api", fetch)
		service.applyOutcome(handle, app.ID, operations.KindDeploy, nil)

		var got models.Application
		require.NoError(t, db.First(&got, "id = ?", app.ID).Error)
		assert.Equal(t, "pending", got.Status)
		assert.Nil(t, got.LastDeploy)
	})

	t.Run("Should report completion to the after callback", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := newTracker()
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Containers stopped", Status: "stopped"}, nil
		}

		var completed *bool
		handle := tracker.Start(operations.KindStop, app.ID, "Stopping shop-api", fetch)
		service.applyOutcome(handle, app.ID, operations.KindStop, func(ok bool) { completed = &ok })

		require.NotNil(t, completed)
		assert.True(t, *completed)
	})

	t.Run("Should report a stopped run as not completed", func(t *testing.T) {
		db := setupDB(t)
		agent := createAgent(t, db)
		app := createApp(t, db, agent.ID, "shop-api")

		tracker := newTracker()
		service := NewService(db, context.Background(), nil, tracker)

		fetch := func(ctx context.Context, target string) (operations.FetchResult, error) {
			return operations.FetchResult{Logs: "Building layers", Status: "deploying"}, nil
		}

		handle := tracker.Start(operations.KindDeploy, app.ID, "Deploying shop-api", fetch)
		handle.Stop()

		var completed *bool
		service.applyOutcome(handle, app.ID, operations.KindDeploy, func(ok bool) { completed = &ok })

		require.NotNil(t, completed)
		assert.False(t, *completed)

		var got models.Application
		require.NoError(t, db.First(&got, "id = ?", app.ID).Error)
		assert.Equal(t, "pending", got.Status)
	})
}

func TestLogFetcher(t *testing.T) {
	t.Run("Should map the agent log bundle onto a fetch result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/apps/shop-api/logs", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"logs":"Starting containers","status":"deploying"}`))
		}))
		defer srv.Close()

		service := NewService(nil, context.Background(), nil, nil)
		fetch := service.logFetcher(api.NewClient(srv.URL, "token"), "shop-api")

		res, err := fetch(context.Background(), "ignored")
		require.NoError(t, err)
		assert.Equal(t, "Starting containers", res.Logs)
		assert.Equal(t, "deploying", res.Status)
	})
}
