package main

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/sayanm085/shotops-dashboard/internal/crypto"
	"github.com/sayanm085/shotops-dashboard/internal/database"
	"github.com/sayanm085/shotops-dashboard/internal/services/agents"
	"github.com/sayanm085/shotops-dashboard/internal/services/apps"
	"github.com/sayanm085/shotops-dashboard/internal/services/databrowser"
	"github.com/sayanm085/shotops-dashboard/internal/services/operations"
	"github.com/sayanm085/shotops-dashboard/internal/services/scheduler"
	"github.com/sayanm085/shotops-dashboard/internal/services/terminal"
)

// App struct - main application state
type App struct {
	ctx              context.Context
	db               *gorm.DB
	tracker          *operations.Tracker
	agentsService    *agents.Service
	appsService      *apps.Service
	databaseService  *databrowser.Service
	schedulerService *scheduler.Service
	terminalService  *terminal.Service
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup initializes encryption, storage, and the service layer. The
// context is saved so services can observe shutdown.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	log.Println("Dashboard starting up...")

	// Initialize encryption (FATAL if this fails - we cannot save agent
	// tokens or database passwords without it)
	if err := crypto.InitEncryption(); err != nil {
		log.Fatalf("FATAL: Encryption initialization failed: %v\nAgent tokens cannot be saved without encryption.", err)
	}
	log.Println("Encryption initialized successfully")

	// Initialize database
	db, err := database.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db
	log.Println("Database initialized successfully")

	// Initialize services
	a.tracker = operations.NewTracker(operations.Config{
		OnClose: func(target string) {
			log.Printf("Progress view closed for app %s", target)
		},
	})

	a.agentsService = agents.NewService(db, ctx)
	log.Println("Agents service initialized")

	a.appsService = apps.NewService(db, ctx, a.agentsService, a.tracker)
	log.Println("Apps service initialized")

	a.databaseService = databrowser.NewService(db, ctx)
	log.Println("Database browser service initialized")

	a.terminalService = terminal.NewService(a.agentsService)
	log.Println("Terminal service initialized")

	a.schedulerService = scheduler.NewService(db, ctx, a.appsService, a.agentsService)
	if err := a.schedulerService.Start(); err != nil {
		log.Printf("WARNING: Failed to start scheduler: %v", err)
	} else {
		log.Println("Scheduler service initialized and started")
	}

	log.Println("Startup complete")
}

// shutdown stops background work and closes open connections
func (a *App) shutdown(ctx context.Context) {
	log.Println("Dashboard shutting down...")

	// Stop scheduler
	if a.schedulerService != nil {
		a.schedulerService.Stop()
	}

	// Close pooled browser connections
	if a.databaseService != nil {
		a.databaseService.CloseAll()
	}

	// Close database
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
