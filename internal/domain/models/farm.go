package models

import (
	"time"

	"gorm.io/gorm"
)

// Model carries the columns shared by every bookkeeping table, including the
// audit stamps filled from the acting principal.
type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedBy *uint          `json:"created_by,omitempty"`
	UpdatedBy *uint          `json:"updated_by,omitempty"`
}

// Stamp records the acting user on the row.
func (m *Model) Stamp(userID uint) {
	if userID == 0 {
		return
	}
	id := userID
	if m.ID == 0 {
		m.CreatedBy = &id
	}
	m.UpdatedBy = &id
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusInUse    = "in_use"
	StatusClosed   = "closed"
)

// Farm is a physical site that owns coops and stock.
type Farm struct {
	Model
	Code    string `gorm:"size:32;uniqueIndex;not null" json:"code" binding:"required"`
	Name    string `gorm:"size:128;not null" json:"name" binding:"required"`
	Address string `gorm:"size:255" json:"address"`
	Contact string `gorm:"size:128" json:"contact"`
	Phone   string `gorm:"size:32" json:"phone"`
	Status  string `gorm:"size:16;not null;default:active" json:"status"`
}

// Coop (kandang) houses at most one active livestock batch.
type Coop struct {
	Model
	FarmID   uint   `gorm:"index;not null" json:"farm_id" binding:"required"`
	Code     string `gorm:"size:32;not null" json:"code" binding:"required"`
	Name     string `gorm:"size:128;not null" json:"name" binding:"required"`
	Capacity int    `gorm:"not null;default:0" json:"capacity"`
	Status   string `gorm:"size:16;not null;default:active" json:"status"`
}

// FarmOperator assigns a user to a farm; non-manager roles only see assigned farms.
type FarmOperator struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FarmID    uint      `gorm:"uniqueIndex:idx_farm_operator;not null" json:"farm_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_farm_operator;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a back-office account. Role holds one of the access roles.
type User struct {
	Model
	Name   string `gorm:"size:128;not null" json:"name"`
	Email  string `gorm:"size:128;uniqueIndex;not null" json:"email"`
	Phone  string `gorm:"size:32;index" json:"phone"`
	Role   string `gorm:"size:32;not null" json:"role"`
	Active bool   `gorm:"not null;default:true" json:"active"`
}
