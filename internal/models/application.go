package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application represents an app deployed (or deployable) on one agent host
type Application struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	AgentID    string     `gorm:"not null;column:agent_id;uniqueIndex:idx_agent_app" json:"agent_id"`
	Name       string     `gorm:"not null;uniqueIndex:idx_agent_app" json:"name"`
	RepoURL    string     `gorm:"column:repo_url" json:"repo_url"`
	Branch     string     `gorm:"default:main" json:"branch"`
	Domain     string     `json:"domain"`
	Port       int        `json:"port"`
	Status     string     `gorm:"default:pending" json:"status"` // pending, deploying, running, stopped, error
	LastDeploy *time.Time `gorm:"column:last_deploy" json:"last_deploy"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (app *Application) BeforeCreate(tx *gorm.DB) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Application) TableName() string {
	return "applications"
}
