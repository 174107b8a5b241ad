package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timesheets/models"

	"gorm.io/gorm"
)

// EntryInput carries one day's logged work.
type EntryInput struct {
	Date        time.Time
	Hours       float64
	Description string
	ProjectID   *uint
	TaskID      *uint
}

// LogEntry records hours for the acting user, creating the period's DRAFT
// timesheet on first use. Entries may only be written while the parent
// timesheet is DRAFT or REJECTED; the status is checked inside the write
// transaction so an edit racing a concurrent approval is rejected.
func (s *Service) LogEntry(ctx context.Context, actor *models.User, in EntryInput) (*models.TimesheetEntry, error) {
	if !models.ValidHours(in.Hours) {
		return nil, fmt.Errorf("%w: got %.2f", models.ErrInvalidHours, in.Hours)
	}
	var out *models.TimesheetEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		month, year := int(in.Date.Month()), in.Date.Year()

		var ts models.Timesheet
		err := tx.Where("user_id = ? AND month = ? AND year = ?", actor.ID, month, year).First(&ts).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ts = models.Timesheet{UserID: actor.ID, Month: month, Year: year, Status: models.StatusDraft}
			if err := tx.Create(&ts).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if !ts.Status.Editable() {
				return fmt.Errorf("%w: status %s", models.ErrNotEditable, ts.Status)
			}
		}

		entry := models.TimesheetEntry{
			TimesheetID: ts.ID,
			Date:        in.Date,
			LoggedHours: in.Hours,
			Description: in.Description,
			ProjectID:   in.ProjectID,
			TaskID:      in.TaskID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		out = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEntry rewrites an entry's logged fields. Owner only, and only while
// the parent is still editable at write time.
func (s *Service) UpdateEntry(ctx context.Context, actor *models.User, entryID uint, in EntryInput) (*models.TimesheetEntry, error) {
	if !models.ValidHours(in.Hours) {
		return nil, fmt.Errorf("%w: got %.2f", models.ErrInvalidHours, in.Hours)
	}
	var out *models.TimesheetEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, ts, err := loadEntryWithParent(tx, entryID)
		if err != nil {
			return err
		}
		if ts.UserID != actor.ID {
			return fmt.Errorf("%w: entry %d belongs to another user", models.ErrForbidden, entryID)
		}
		if !ts.Status.Editable() {
			return fmt.Errorf("%w: status %s", models.ErrNotEditable, ts.Status)
		}

		entry.Date = in.Date
		entry.LoggedHours = in.Hours
		entry.Description = in.Description
		entry.ProjectID = in.ProjectID
		entry.TaskID = in.TaskID
		if err := tx.Save(entry).Error; err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEntry removes an entry under the same editability guard as updates.
func (s *Service) DeleteEntry(ctx context.Context, actor *models.User, entryID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, ts, err := loadEntryWithParent(tx, entryID)
		if err != nil {
			return err
		}
		if ts.UserID != actor.ID {
			return fmt.Errorf("%w: entry %d belongs to another user", models.ErrForbidden, entryID)
		}
		if !ts.Status.Editable() {
			return fmt.Errorf("%w: status %s", models.ErrNotEditable, ts.Status)
		}
		return tx.Delete(entry).Error
	})
}

// OverrideHours sets the admin override on an entry regardless of the parent
// timesheet's lifecycle stage, modeling post-finalization corrections. The
// same transaction writes one AuditLog row and one no-op ApprovalHistory row
// so the correction shows up in the visible trail.
func (s *Service) OverrideHours(ctx context.Context, actor *models.User, entryID uint, approvedHours float64, note string) (*models.TimesheetEntry, error) {
	if !actor.CanOverrideHours() {
		return nil, fmt.Errorf("%w: role %s cannot override hours", models.ErrForbidden, actor.Role)
	}
	if !models.ValidHours(approvedHours) {
		return nil, fmt.Errorf("%w: got %.2f", models.ErrInvalidHours, approvedHours)
	}
	var out *models.TimesheetEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, ts, err := loadEntryWithParent(tx, entryID)
		if err != nil {
			return err
		}

		before := fmt.Sprintf("%.2f", entry.EffectiveHours())
		now := time.Now()
		entry.ApprovedHours = &approvedHours
		entry.HoursModifiedBy = &actor.ID
		entry.HoursModifiedAt = &now
		if err := tx.Save(entry).Error; err != nil {
			return err
		}

		after := fmt.Sprintf("%.2f", approvedHours)
		if err := s.rec.Audit(tx, "timesheet_entry", entry.ID, actor.ID, before, after, note); err != nil {
			return err
		}
		if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionModified, ts.Status, ts.Status, note); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("entry_id", out.ID).Uint("actor_id", actor.ID).Float64("approved_hours", approvedHours).Msg("entry hours overridden")
	return out, nil
}

func loadEntryWithParent(tx *gorm.DB, entryID uint) (*models.TimesheetEntry, *models.Timesheet, error) {
	var entry models.TimesheetEntry
	if err := tx.First(&entry, entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: entry %d", models.ErrNotFound, entryID)
		}
		return nil, nil, err
	}
	ts, err := loadTimesheet(tx, entry.TimesheetID)
	if err != nil {
		return nil, nil, err
	}
	return &entry, ts, nil
}
