package models

import (
	"time"

	"gorm.io/gorm"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusFinished  Status = "FINISHED"
	StatusRejected  Status = "REJECTED"

	// legacyApprovedByTeamLead still exists in rows written by older releases.
	legacyApprovedByTeamLead Status = "APPROVED_BY_TEAMLEAD"
)

// Normalize maps legacy status literals onto the closed status set.
func (s Status) Normalize() Status {
	if s == legacyApprovedByTeamLead {
		return StatusApproved
	}
	return s
}

// Editable reports whether entries of a timesheet in this status may be
// created, updated or deleted.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// Timesheet is one employee's hours for one (month, year) period.
type Timesheet struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"not null;index;uniqueIndex:idx_user_period" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Month  int  `gorm:"not null;uniqueIndex:idx_user_period" json:"month"`
	Year   int  `gorm:"not null;uniqueIndex:idx_user_period" json:"year"`

	Status       Status     `gorm:"not null;size:30;default:DRAFT" json:"status"`
	SubmitDate   *time.Time `json:"submit_date"`
	ApproveDate  *time.Time `json:"approve_date"`
	FinishedDate *time.Time `json:"finished_date"`
	Comment      string     `gorm:"size:500" json:"comment"`

	CurrentApproverID *uint `gorm:"index" json:"current_approver_id"`
	CurrentApprover   *User `gorm:"foreignKey:CurrentApproverID" json:"current_approver,omitempty"`

	BatchID *uint           `gorm:"index" json:"batch_id"`
	Batch   *TimesheetBatch `gorm:"foreignKey:BatchID" json:"batch,omitempty"`

	Entries []TimesheetEntry `gorm:"foreignKey:TimesheetID" json:"entries,omitempty"`
}

// AfterFind normalizes legacy status values at the read boundary so the rest
// of the code only ever sees the closed set.
func (t *Timesheet) AfterFind(_ *gorm.DB) error {
	t.Status = t.Status.Normalize()
	return nil
}

// IsCurrentApprover reports whether the user is the one who must act next.
// When no approver is assigned, any user allowed to approve may act.
func (t *Timesheet) IsCurrentApprover(u *User) bool {
	if t.CurrentApproverID != nil {
		return *t.CurrentApproverID == u.ID
	}
	return u.CanApprove()
}
