package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent represents a VPS host running the shotops agent daemon
type Agent struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"unique;not null" json:"name"`
	Host        string     `gorm:"not null" json:"host"`
	Port        int        `gorm:"not null;default:8088" json:"port"`
	UseTLS      bool       `gorm:"column:use_tls;default:false" json:"use_tls"`
	APITokenEnc string     `gorm:"not null;column:api_token_enc" json:"-"` // Encrypted, never expose in JSON
	Status      string     `gorm:"default:unknown" json:"status"`          // online, offline, unknown
	Version     string     `json:"version"`
	LastSeenAt  *time.Time `gorm:"column:last_seen_at" json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BaseURL returns the HTTP base URL of the agent's API
func (a *Agent) BaseURL() string {
	scheme := "http"
	if a.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, a.Host, a.Port)
}

// TableName specifies the table name for GORM
func (Agent) TableName() string {
	return "agents"
}
