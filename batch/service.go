// Package batch groups team-lead-approved timesheets into one admin-reviewed
// unit and drives their terminal transition together. Creating a batch is a
// partial-success operation; finishing or rejecting one is all-or-nothing.
package batch

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

// CreateResult reports which timesheets made it into the new batch and a
// human-readable reason for each one that did not.
type CreateResult struct {
	Batch     *models.TimesheetBatch `json:"batch"`
	Succeeded []uint                 `json:"succeeded"`
	Failed    []string               `json:"failed"`
}

// Create batches every APPROVED timesheet from the list and hands the batch to
// the given admin. IDs that are unknown or not APPROVED are reported, not
// fatal; only an empty valid set fails the whole call.
func (s *Service) Create(ctx context.Context, actor *models.User, timesheetIDs []uint, adminID uint) (*CreateResult, error) {
	if len(timesheetIDs) == 0 {
		return nil, fmt.Errorf("%w: no timesheet ids given", models.ErrValidation)
	}
	if !actor.CanApprove() {
		return nil, fmt.Errorf("%w: role %s cannot create batches", models.ErrForbidden, actor.Role)
	}

	res := &CreateResult{Succeeded: []uint{}, Failed: []string{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		if err := tx.First(&admin, adminID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", models.ErrNotFound, adminID)
			}
			return err
		}
		if !admin.CanAdministerBatches() {
			return fmt.Errorf("%w: user %d is not an admin", models.ErrValidation, adminID)
		}

		b := models.TimesheetBatch{
			Status:     models.BatchPending,
			TeamLeadID: actor.ID,
			AdminID:    adminID,
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}

		// Statuses are read on the batch transaction itself, so a reject that
		// commits while the batch is being assembled excludes the timesheet
		// instead of being overwritten by the save below.
		for _, id := range timesheetIDs {
			var ts models.Timesheet
			if err := tx.First(&ts, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					res.Failed = append(res.Failed, fmt.Sprintf("timesheet %d: not found", id))
					continue
				}
				return err
			}
			if ts.Status != models.StatusApproved {
				res.Failed = append(res.Failed, fmt.Sprintf("timesheet %d: status %s, want %s", id, ts.Status, models.StatusApproved))
				continue
			}
			ts.CurrentApproverID = &adminID
			ts.BatchID = &b.ID
			if err := tx.Save(&ts).Error; err != nil {
				return err
			}
			// Administrative re-routing, not a status change.
			if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionSubmittedToAdmin, ts.Status, ts.Status, ""); err != nil {
				return err
			}
			res.Succeeded = append(res.Succeeded, ts.ID)
		}
		if len(res.Succeeded) == 0 {
			return fmt.Errorf("%w: %d candidate(s), none in status %s", models.ErrNoValidItems, len(timesheetIDs), models.StatusApproved)
		}
		if err := s.rec.BatchEvent(tx, b.ID, actor.ID, models.ActionCreated, ""); err != nil {
			return err
		}
		res.Batch = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("batch_id", res.Batch.ID).Int("timesheets", len(res.Succeeded)).Int("skipped", len(res.Failed)).Msg("batch created")
	return res, nil
}

// MarkDone finishes every still-APPROVED member of a PENDING batch and marks
// the batch PROCESSED, as one unit of work.
func (s *Service) MarkDone(ctx context.Context, actor *models.User, batchID uint) (*models.TimesheetBatch, error) {
	if !actor.CanAdministerBatches() {
		return nil, fmt.Errorf("%w: role %s cannot administer batches", models.ErrForbidden, actor.Role)
	}
	var out *models.TimesheetBatch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, members, err := loadBatch(tx, batchID)
		if err != nil {
			return err
		}
		if b.Status != models.BatchPending {
			return fmt.Errorf("%w: batch is %s, want %s", models.ErrInvalidTransition, b.Status, models.BatchPending)
		}

		now := time.Now()
		finished := 0
		for i := range members {
			ts := &members[i]
			if ts.Status != models.StatusApproved {
				continue
			}
			from := ts.Status
			ts.Status = models.StatusFinished
			ts.FinishedDate = &now
			if err := tx.Save(ts).Error; err != nil {
				return err
			}
			if err := s.rec.Transition(tx, ts.ID, actor.ID, models.ActionFinished, from, ts.Status, ""); err != nil {
				return err
			}
			finished++
		}
		if finished == 0 {
			return fmt.Errorf("%w: batch %d has no timesheets in status %s", models.ErrNoEligibleItems, batchID, models.StatusApproved)
		}

		b.Status = models.BatchProcessed
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		if err := s.rec.BatchEvent(tx, b.ID, actor.ID, models.ActionFinished, ""); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("batch_id", out.ID).Msg("batch processed")
	return out, nil
}

// Reject rejects every member of a PENDING batch with the given comment and
// marks the batch REJECTED, as one unit of work. The comment is mandatory and
// is checked before anything is touched.
func (s *Service) Reject(ctx context.Context, actor *models.User, batchID uint, comment string) (*models.TimesheetBatch, error) {
	if !actor.CanAdministerBatches() {
		return nil, fmt.Errorf("%w: role %s cannot administer batches", models.ErrForbidden, actor.Role)
	}
	if comment == "" {
		return nil, fmt.Errorf("%w: a comment is required to reject a batch", models.ErrValidation)
	}
	var out *models.TimesheetBatch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, members, err := loadBatch(tx, batchID)
		if err != nil {
			return err
		}
		if b.Status != models.BatchPending {
			return fmt.Errorf("%w: batch is %s, want %s", models.ErrInvalidTransition, b.Status, models.BatchPending)
		}

		for i := range members {
			ts := &members[i]
			// Members rejected individually before the batch action stay as
			// they are; the batch does not move in lockstep with every row.
			if ts.Status != models.StatusApproved && ts.Status != models.StatusSubmitted {
				continue
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
		}

		b.Status = models.BatchRejected
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		if err := s.rec.BatchEvent(tx, b.ID, actor.ID, models.ActionRejected, comment); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("batch_id", out.ID).Msg("batch rejected")
	return out, nil
}

func loadBatch(tx *gorm.DB, id uint) (*models.TimesheetBatch, []models.Timesheet, error) {
	var b models.TimesheetBatch
	if err := tx.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: batch %d", models.ErrNotFound, id)
		}
		return nil, nil, err
	}
	var members []models.Timesheet
	if err := tx.Where("batch_id = ?", id).Find(&members).Error; err != nil {
		return nil, nil, err
	}
	return &b, members, nil
}
