// Package history is the append-only write path for audit records. Every
// state-changing operation records its row through the same transaction that
// carries the entity mutation, so a mutation can never commit without its
// history row.
package history

import (
	"timesheets/models"

	"gorm.io/gorm"
)

type Recorder struct{}

// Transition appends one ApprovalHistory row on the caller's transaction.
func (Recorder) Transition(tx *gorm.DB, timesheetID, actorID uint, action string, from, to models.Status, comment string) error {
	row := models.ApprovalHistory{
		TimesheetID: timesheetID,
		ActorID:     actorID,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		Comment:     comment,
	}
	return tx.Create(&row).Error
}

// BatchEvent appends one BatchHistory row on the caller's transaction.
func (Recorder) BatchEvent(tx *gorm.DB, batchID, actorID uint, action, comment string) error {
	row := models.BatchHistory{
		BatchID: batchID,
		ActorID: actorID,
		Action:  action,
		Comment: comment,
	}
	return tx.Create(&row).Error
}

// Audit appends one AuditLog row on the caller's transaction.
func (Recorder) Audit(tx *gorm.DB, entity string, entityID, actorID uint, before, after, note string) error {
	row := models.AuditLog{
		Entity:   entity,
		EntityID: entityID,
		ActorID:  actorID,
		Before:   before,
		After:    after,
		Note:     note,
	}
	return tx.Create(&row).Error
}
