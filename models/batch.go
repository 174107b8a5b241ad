package models

import (
	"time"

	"gorm.io/gorm"
)

type BatchStatus string

const (
	BatchPending   BatchStatus = "PENDING"
	BatchProcessed BatchStatus = "PROCESSED"
	BatchRejected  BatchStatus = "REJECTED"
)

// TimesheetBatch groups team-lead-approved timesheets handed to one admin as a
// single administrative unit.
type TimesheetBatch struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Status BatchStatus `gorm:"not null;size:20;default:PENDING" json:"status"`

	TeamLeadID uint `gorm:"not null;index" json:"team_lead_id"`
	TeamLead   User `gorm:"foreignKey:TeamLeadID" json:"team_lead,omitempty"`
	AdminID    uint `gorm:"not null;index" json:"admin_id"`
	Admin      User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`

	Timesheets []Timesheet `gorm:"foreignKey:BatchID" json:"timesheets,omitempty"`
}
