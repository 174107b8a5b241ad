package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleTeamLead Role = "TEAMLEAD"
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
)

type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	Username           string         `gorm:"uniqueIndex;not null;size:100" json:"username"`
	FullName           string         `gorm:"not null;size:200" json:"full_name"`
	PasswordHash       string         `gorm:"not null" json:"-"`
	Role               Role           `gorm:"not null;size:20" json:"role"`
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	MustChangePassword bool           `gorm:"default:true" json:"must_change_password"`
	Timesheets         []Timesheet    `gorm:"foreignKey:UserID" json:"timesheets,omitempty"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanApprove reports whether the role may act on a submitted timesheet.
func (u *User) CanApprove() bool {
	return u.Role == RoleTeamLead || u.Role == RoleAdmin || u.Role == RoleManager
}

// CanFinish reports whether an approval by this role lands the timesheet
// directly in FINISHED instead of the intermediate APPROVED.
func (u *User) CanFinish() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

func (u *User) CanAdministerBatches() bool {
	return u.Role == RoleAdmin
}

func (u *User) CanOverrideHours() bool {
	return u.Role == RoleAdmin
}

func (u *User) CanExport() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}
