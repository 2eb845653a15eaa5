// Package domain holds the organization model. Organizations are tenants;
// their operational status mirrors the subscription lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrganizationStatus is the tenant's operational state. Cancellation does
// not get its own value: a canceled subscription maps the org to SUSPENDED.
type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "ACTIVE"
	OrganizationStatusSuspended OrganizationStatus = "SUSPENDED"
)

type Organization struct {
	ID        snowflake.ID       `gorm:"primaryKey"`
	Name      string             `gorm:"type:text;not null"`
	Status    OrganizationStatus `gorm:"type:text;not null;default:'ACTIVE'"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
