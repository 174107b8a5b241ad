package models

import (
	"time"

	"gorm.io/gorm"
)

// TimesheetEntry is one day's logged work on a project task. LoggedHours is
// what the employee entered; ApprovedHours, when set, is an admin override and
// wins for every downstream computation.
type TimesheetEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TimesheetID uint      `gorm:"not null;index" json:"timesheet_id"`
	Timesheet   Timesheet `gorm:"foreignKey:TimesheetID" json:"timesheet,omitempty"`

	Date        time.Time `gorm:"not null;type:date" json:"date"`
	LoggedHours float64   `gorm:"not null" json:"logged_hours"`
	Description string    `gorm:"size:500" json:"description"`

	ApprovedHours   *float64   `json:"approved_hours"`
	HoursModifiedBy *uint      `json:"hours_modified_by"`
	HoursModifiedAt *time.Time `json:"hours_modified_at"`

	ProjectID *uint    `gorm:"index" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	TaskID    *uint    `gorm:"index" json:"task_id"`
	Task      *Task    `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

// EffectiveHours returns the approved override when present, the logged hours
// otherwise. All reporting must go through this.
func (e *TimesheetEntry) EffectiveHours() float64 {
	if e.ApprovedHours != nil {
		return *e.ApprovedHours
	}
	return e.LoggedHours
}

// ValidHours reports whether a per-day value is inside the allowed bound.
func ValidHours(h float64) bool {
	return h >= 0 && h <= 24
}
