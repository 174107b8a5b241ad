package models

import (
	"time"
)

// Actions recorded in the history tables.
const (
	ActionSubmitted        = "Submitted"
	ActionApproved         = "Approved"
	ActionRejected         = "Rejected"
	ActionFinished         = "Finished"
	ActionSubmittedToAdmin = "SubmittedToAdmin"
	ActionModified         = "Modified"
	ActionCreated          = "Created"
)

// ApprovalHistory is one immutable row per timesheet transition or hours
// override. Rows are never updated or deleted.
type ApprovalHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	TimesheetID uint      `gorm:"not null;index" json:"timesheet_id"`
	Timesheet   Timesheet `gorm:"foreignKey:TimesheetID" json:"-"`

	ActorID uint  `gorm:"not null" json:"actor_id"`
	Actor   *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	Action     string `gorm:"not null;size:50" json:"action"`
	FromStatus Status `gorm:"not null;size:30" json:"from_status"`
	ToStatus   Status `gorm:"not null;size:30" json:"to_status"`
	Comment    string `gorm:"size:500" json:"comment"`
}

// BatchHistory mirrors ApprovalHistory for batch-level events.
type BatchHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	BatchID uint           `gorm:"not null;index" json:"batch_id"`
	Batch   TimesheetBatch `gorm:"foreignKey:BatchID" json:"-"`

	ActorID uint  `gorm:"not null" json:"actor_id"`
	Actor   *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	Action  string `gorm:"not null;size:50" json:"action"`
	Comment string `gorm:"size:500" json:"comment"`
}

// AuditLog records entity mutations that happen outside the state machine,
// currently only admin hour overrides.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Entity   string `gorm:"not null;size:50" json:"entity"`
	EntityID uint   `gorm:"not null;index" json:"entity_id"`

	ActorID uint  `gorm:"not null" json:"actor_id"`
	Actor   *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	Before string `gorm:"size:200" json:"before"`
	After  string `gorm:"size:200" json:"after"`
	Note   string `gorm:"size:500" json:"note"`
}

// ExportLog records who exported which period.
type ExportLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ActorID uint  `gorm:"not null" json:"actor_id"`
	Actor   *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`

	Month    int    `gorm:"not null" json:"month"`
	Year     int    `gorm:"not null" json:"year"`
	Filename string `gorm:"size:200" json:"filename"`
	Rows     int    `gorm:"not null" json:"rows"`
}
