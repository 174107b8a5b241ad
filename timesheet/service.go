// Package timesheet owns the lifecycle of a single timesheet: who may move it
// between DRAFT, SUBMITTED, APPROVED, FINISHED and REJECTED, and under which
// preconditions. Every transition commits together with its history row.
package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timesheets/history"
	"timesheets/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	rec history.Recorder
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// ApprovableTimesheet is a timesheet enriched with its owner and total
// effective hours, for approver work queues.
type ApprovableTimesheet struct {
	models.Timesheet
	OwnerName  string  `json:"owner_name"`
	TotalHours float64 `json:"total_hours"`
}

// BulkResult reports a partial-success bulk operation: the IDs that went
// through and one human-readable reason per ID that did not.
type BulkResult struct {
	Succeeded []uint   `json:"succeeded"`
	Failed    []string `json:"failed"`
}

func loadTimesheet(tx *gorm.DB, id uint) (*models.Timesheet, error) {
	var ts models.Timesheet
	if err := tx.First(&ts, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: timesheet %d", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &ts, nil
}

func loadUser(tx *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &u, nil
}

// Submit moves the owner's timesheet from DRAFT or REJECTED to SUBMITTED,
// optionally assigning who must act on it next.
func (s *Service) Submit(ctx context.Context, actor *models.User, timesheetID uint, approverID *uint) (*models.Timesheet, error) {
	var out *models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := loadTimesheet(tx, timesheetID)
		if err != nil {
			return err
		}
		if ts.UserID != actor.ID {
			return fmt.Errorf("%w: only the owner may submit timesheet %d", models.ErrForbidden, timesheetID)
		}
		if ts.Status != models.StatusDraft && ts.Status != models.StatusRejected {
			return fmt.Errorf("%w: cannot submit from status %s", models.ErrInvalidTransition, ts.Status)
		}
		if approverID != nil {
			approver, err := loadUser(tx, *approverID)
			if err != nil {
				return err
			}
			if !approver.CanApprove() {
				return fmt.Errorf("%w: user %d cannot act as approver", models.ErrValidation, *approverID)
			}
			ts.CurrentApproverID = approverID
		}

		from := ts.Status
		now := time.Now()
		ts.Status = models.StatusSubmitted
		ts.SubmitDate = &now
		if err := tx.Save(ts).Error; err != nil {
			return err
		}
		if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionSubmitted, from, ts.Status, ""); err != nil {
			return err
		}
		out = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("timesheet_id", out.ID).Uint("actor_id", actor.ID).Msg("timesheet submitted")
	return out, nil
}

// Approve acts on a SUBMITTED timesheet. The designated approver only; an
// admin or manager approval finishes the timesheet, a team lead approval
// leaves it APPROVED for the admin round.
func (s *Service) Approve(ctx context.Context, actor *models.User, timesheetID uint, comment string) (*models.Timesheet, error) {
	var out *models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := loadTimesheet(tx, timesheetID)
		if err != nil {
			return err
		}
		if ts.Status != models.StatusSubmitted {
			return fmt.Errorf("%w: cannot approve from status %s", models.ErrInvalidTransition, ts.Status)
		}
		if !actor.CanApprove() || !ts.IsCurrentApprover(actor) {
			return fmt.Errorf("%w: user %d is not the current approver of timesheet %d", models.ErrForbidden, actor.ID, timesheetID)
		}

		from := ts.Status
		now := time.Now()
		ts.ApproveDate = &now
		if actor.CanFinish() {
			ts.Status = models.StatusFinished
			ts.FinishedDate = &now
		} else {
			ts.Status = models.StatusApproved
		}
		if comment != "" {
			ts.Comment = comment
		}
		if err := tx.Save(ts).Error; err != nil {
			return err
		}
		if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionApproved, from, ts.Status, comment); err != nil {
			return err
		}
		out = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("timesheet_id", out.ID).Uint("actor_id", actor.ID).Str("status", string(out.Status)).Msg("timesheet approved")
	return out, nil
}

// Reject sends a SUBMITTED or APPROVED timesheet back to the employee. The
// comment is mandatory; forward progress (approval dates, assigned approver)
// is cleared so the timesheet is editable and re-submittable.
func (s *Service) Reject(ctx context.Context, actor *models.User, timesheetID uint, comment string) (*models.Timesheet, error) {
	if comment == "" {
		return nil, fmt.Errorf("%w: a comment is required to reject", models.ErrValidation)
	}
	var out *models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := loadTimesheet(tx, timesheetID)
		if err != nil {
			return err
		}
		if ts.Status != models.StatusSubmitted && ts.Status != models.StatusApproved {
			return fmt.Errorf("%w: cannot reject from status %s", models.ErrInvalidTransition, ts.Status)
		}
		if !actor.CanApprove() || !ts.IsCurrentApprover(actor) {
			return fmt.Errorf("%w: user %d is not the current approver of timesheet %d", models.ErrForbidden, actor.ID, timesheetID)
		}

		from := ts.Status
		ts.Status = models.StatusRejected
		ts.Comment = comment
		ts.ApproveDate = nil
		ts.FinishedDate = nil
		ts.CurrentApproverID = nil
		if err := tx.Save(ts).Error; err != nil {
			return err
		}
		if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionRejected, from, ts.Status, comment); err != nil {
			return err
		}
		out = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("timesheet_id", out.ID).Uint("actor_id", actor.ID).Msg("timesheet rejected")
	return out, nil
}

// Finish closes a SUBMITTED or APPROVED timesheet. Admin and manager only.
func (s *Service) Finish(ctx context.Context, actor *models.User, timesheetID uint) (*models.Timesheet, error) {
	var out *models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := loadTimesheet(tx, timesheetID)
		if err != nil {
			return err
		}
		if !actor.CanFinish() {
			return fmt.Errorf("%w: role %s cannot finish timesheets", models.ErrForbidden, actor.Role)
		}
		if ts.Status != models.StatusSubmitted && ts.Status != models.StatusApproved {
			return fmt.Errorf("%w: cannot finish from status %s", models.ErrInvalidTransition, ts.Status)
		}

		from := ts.Status
		now := time.Now()
		ts.Status = models.StatusFinished
		ts.FinishedDate = &now
		if err := tx.Save(ts).Error; err != nil {
			return err
		}
		if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionFinished, from, ts.Status, ""); err != nil {
			return err
		}
		out = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitToAdmin escalates an APPROVED timesheet to a chosen admin without
// losing the approval: the row re-enters SUBMITTED with the admin as current
// approver, while the history records the status as unchanged.
func (s *Service) SubmitToAdmin(ctx context.Context, actor *models.User, timesheetID, adminID uint) (*models.Timesheet, error) {
	var out *models.Timesheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := loadTimesheet(tx, timesheetID)
		if err != nil {
			return err
		}
		if ts.Status != models.StatusApproved {
			return fmt.Errorf("%w: cannot submit to admin from status %s", models.ErrInvalidTransition, ts.Status)
		}
		if ts.UserID != actor.ID && !actor.CanApprove() {
			return fmt.Errorf("%w: user %d may not escalate timesheet %d", models.ErrForbidden, actor.ID, timesheetID)
		}
		admin, err := loadUser(tx, adminID)
		if err != nil {
			return err
		}
		if !admin.CanAdministerBatches() {
			return fmt.Errorf("%w: user %d is not an admin", models.ErrValidation, adminID)
		}

		ts.Status = models.StatusSubmitted
		ts.CurrentApproverID = &adminID
		if err := tx.Save(ts).Error; err != nil {
			return err
		}
		// History keeps the approval semantics: from and to both APPROVED.
		if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionSubmittedToAdmin, models.StatusApproved, models.StatusApproved, ""); err != nil {
			return err
		}
		out = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("timesheet_id", out.ID).Uint("admin_id", adminID).Msg("timesheet escalated to admin")
	return out, nil
}

// Approvable lists the timesheets the actor may act on, enriched with owner
// name and total effective hours. Submitted timesheets without an assigned
// approver are actionable by anyone who can approve, so they appear in every
// approver's queue.
func (s *Service) Approvable(ctx context.Context, actor *models.User) ([]ApprovableTimesheet, error) {
	q := s.db.WithContext(ctx).
		Preload("User").
		Preload("Entries").
		Where("status = ?", models.StatusSubmitted)
	if actor.CanApprove() {
		q = q.Where("current_approver_id = ? OR current_approver_id IS NULL", actor.ID)
	} else {
		q = q.Where("current_approver_id = ?", actor.ID)
	}

	var sheets []models.Timesheet
	if err := q.Order("submit_date asc").Find(&sheets).Error; err != nil {
		return nil, err
	}

	out := make([]ApprovableTimesheet, 0, len(sheets))
	for _, ts := range sheets {
		var total float64
		for i := range ts.Entries {
			total += ts.Entries[i].EffectiveHours()
		}
		out = append(out, ApprovableTimesheet{
			Timesheet:  ts,
			OwnerName:  ts.User.DisplayName(),
			TotalHours: total,
		})
	}
	return out, nil
}

// BulkApprove approves each listed timesheet independently, collecting
// per-item failures instead of rolling back the rest.
func (s *Service) BulkApprove(ctx context.Context, actor *models.User, timesheetIDs []uint, comment string) (*BulkResult, error) {
	return s.bulk(ctx, timesheetIDs, func(id uint) error {
		_, err := s.Approve(ctx, actor, id, comment)
		return err
	})
}

// BulkReject rejects each listed timesheet independently with the same
// collected-failure contract as BulkApprove.
func (s *Service) BulkReject(ctx context.Context, actor *models.User, timesheetIDs []uint, comment string) (*BulkResult, error) {
	if comment == "" {
		return nil, fmt.Errorf("%w: a comment is required to reject", models.ErrValidation)
	}
	return s.bulk(ctx, timesheetIDs, func(id uint) error {
		_, err := s.Reject(ctx, actor, id, comment)
		return err
	})
}

func (s *Service) bulk(_ context.Context, timesheetIDs []uint, op func(id uint) error) (*BulkResult, error) {
	if len(timesheetIDs) == 0 {
		return nil, fmt.Errorf("%w: no timesheet ids given", models.ErrValidation)
	}
	res := &BulkResult{Succeeded: []uint{}, Failed: []string{}}
	for _, id := range timesheetIDs {
		if err := op(id); err != nil {
			res.Failed = append(res.Failed, fmt.Sprintf("timesheet %d: %v", id, err))
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}
