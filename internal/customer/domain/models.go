// Package domain holds the customer model. CurrentDebt is a denormalized
// rollup of open credit balances; every credit mutation returns an explicit
// delta that the owning transaction applies to it.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	Name        string       `gorm:"type:text;not null"`
	CurrentDebt int64        `gorm:"not null;default:0"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
