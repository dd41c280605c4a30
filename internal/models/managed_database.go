package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ManagedDatabase represents a database instance running on an agent host
type ManagedDatabase struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	AgentID     string    `gorm:"not null;column:agent_id;index" json:"agent_id"`
	Name        string    `gorm:"not null" json:"name"`
	Engine      string    `gorm:"not null;default:mysql" json:"engine"`
	Host        string    `gorm:"not null" json:"host"`
	Port        int       `gorm:"not null;default:3306" json:"port"`
	Username    string    `gorm:"not null" json:"username"`
	PasswordEnc string    `gorm:"not null;column:password_enc" json:"-"` // Encrypted, never expose in JSON
	DBName      string    `gorm:"column:db_name" json:"db_name"`
	Status      string    `gorm:"default:unknown" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (md *ManagedDatabase) BeforeCreate(tx *gorm.DB) error {
	if md.ID == "" {
		md.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (ManagedDatabase) TableName() string {
	return "managed_databases"
}
