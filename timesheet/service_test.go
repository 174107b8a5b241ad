package timesheet_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"timesheets/database"
	"timesheets/models"
	"timesheets/timesheet"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*timesheet.Service, *gorm.DB) {
	db := newTestDB(t)
	return timesheet.NewService(db, zerolog.Nop()), db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := models.User{
		Username:     username,
		FullName:     strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func createTimesheet(t *testing.T, db *gorm.DB, user *models.User, month, year int, status models.Status) *models.Timesheet {
	t.Helper()
	ts := models.Timesheet{UserID: user.ID, Month: month, Year: year, Status: status}
	require.NoError(t, db.Create(&ts).Error)
	return &ts
}

func createEntry(t *testing.T, db *gorm.DB, ts *models.Timesheet, date time.Time, hours float64) *models.TimesheetEntry {
	t.Helper()
	e := models.TimesheetEntry{TimesheetID: ts.ID, Date: date, LoggedHours: hours}
	require.NoError(t, db.Create(&e).Error)
	return &e
}

func historyRows(t *testing.T, db *gorm.DB, timesheetID uint) []models.ApprovalHistory {
	t.Helper()
	var rows []models.ApprovalHistory
	require.NoError(t, db.Where("timesheet_id = ?", timesheetID).Order("id asc").Find(&rows).Error)
	return rows
}

func TestSubmitFromDraft(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	out, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, out.Status)
	require.NotNil(t, out.SubmitDate)
	require.NotNil(t, out.CurrentApproverID)
	assert.Equal(t, lead.ID, *out.CurrentApproverID)

	rows := historyRows(t, db, ts.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ActionSubmitted, rows[0].Action)
	assert.Equal(t, models.StatusDraft, rows[0].FromStatus)
	assert.Equal(t, models.StatusSubmitted, rows[0].ToStatus)
	assert.Equal(t, owner.ID, rows[0].ActorID)
}

func TestSubmitByNonOwnerForbidden(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	other := createUser(t, db, "bob", models.RoleEmployee)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Submit(context.Background(), other, ts.ID, nil)
	require.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, historyRows(t, db, ts.ID))
}

func TestSubmitFromSubmittedInvalid(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusSubmitted)

	_, err := svc.Submit(context.Background(), owner, ts.ID, nil)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Contains(t, err.Error(), string(models.StatusSubmitted))

	var reloaded models.Timesheet
	require.NoError(t, db.First(&reloaded, ts.ID).Error)
	assert.Equal(t, models.StatusSubmitted, reloaded.Status)
}

func TestSubmitNotFound(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)

	_, err := svc.Submit(context.Background(), owner, 999, nil)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubmitWithNonApproverAssignee(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	peer := createUser(t, db, "bob", models.RoleEmployee)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Submit(context.Background(), owner, ts.ID, &peer.ID)
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestApproveByTeamLeadStaysApproved(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)

	out, err := svc.Approve(context.Background(), lead, ts.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, out.Status)
	require.NotNil(t, out.ApproveDate)
	assert.Nil(t, out.FinishedDate)

	rows := historyRows(t, db, ts.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ActionApproved, rows[1].Action)
	assert.Equal(t, models.StatusApproved, rows[1].ToStatus)
	assert.Equal(t, "looks good", rows[1].Comment)
}

func TestApproveByAdminFinishes(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Submit(context.Background(), owner, ts.ID, &admin.ID)
	require.NoError(t, err)

	out, err := svc.Approve(context.Background(), admin, ts.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)
	require.NotNil(t, out.ApproveDate)
	require.NotNil(t, out.FinishedDate)
}

func TestApproveByWrongApproverForbidden(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	assigned := createUser(t, db, "lead-a", models.RoleTeamLead)
	other := createUser(t, db, "lead-b", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Submit(context.Background(), owner, ts.ID, &assigned.ID)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), other, ts.ID, "")
	require.ErrorIs(t, err, models.ErrForbidden)

	// The assigned approver still can.
	out, err := svc.Approve(context.Background(), assigned, ts.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, out.Status)
}

func TestApproveFromDraftInvalid(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Approve(context.Background(), admin, ts.ID, "")
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestRejectRequiresComment(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)
	_, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), lead, ts.ID, "")
	require.ErrorIs(t, err, models.ErrValidation)

	var reloaded models.Timesheet
	require.NoError(t, db.First(&reloaded, ts.ID).Error)
	assert.Equal(t, models.StatusSubmitted, reloaded.Status)
}

func TestRejectClearsForwardProgress(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)
	_, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), lead, ts.ID, "")
	require.NoError(t, err)

	out, err := svc.Reject(context.Background(), lead, ts.ID, "missing friday entry")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, out.Status)
	assert.Equal(t, "missing friday entry", out.Comment)
	assert.Nil(t, out.ApproveDate)
	assert.Nil(t, out.FinishedDate)
	assert.Nil(t, out.CurrentApproverID)

	// Rejected loops back to editability: re-submission is legal.
	resubmitted, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, resubmitted.Status)
}

func TestFinishRequiresAdminOrManager(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	manager := createUser(t, db, "manager", models.RoleManager)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusApproved)

	_, err := svc.Finish(context.Background(), lead, ts.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	out, err := svc.Finish(context.Background(), manager, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, out.Status)
	require.NotNil(t, out.FinishedDate)
}

func TestFinishFromFinishedInvalid(t *testing.T) {
	svc, db := newTestService(t)
	createUser(t, db, "alice", models.RoleEmployee)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	owner := createUser(t, db, "bob", models.RoleEmployee)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusFinished)

	_, err := svc.Finish(context.Background(), admin, ts.ID)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSubmitToAdminKeepsApprovalSemantics(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusApproved)

	out, err := svc.SubmitToAdmin(context.Background(), lead, ts.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, out.Status)
	require.NotNil(t, out.CurrentApproverID)
	assert.Equal(t, admin.ID, *out.CurrentApproverID)

	rows := historyRows(t, db, ts.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ActionSubmittedToAdmin, rows[0].Action)
	assert.Equal(t, models.StatusApproved, rows[0].FromStatus)
	assert.Equal(t, models.StatusApproved, rows[0].ToStatus)
}

func TestSubmitToAdminRequiresAdminTarget(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusApproved)

	_, err := svc.SubmitToAdmin(context.Background(), owner, ts.ID, lead.ID)
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmitToAdminFromSubmittedInvalid(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusSubmitted)

	_, err := svc.SubmitToAdmin(context.Background(), owner, ts.ID, admin.ID)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestApprovableEnrichedWithEffectiveTotals(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	createEntry(t, db, ts, day, 8)
	e2 := createEntry(t, db, ts, day.AddDate(0, 0, 1), 8)
	override := 4.0
	require.NoError(t, db.Model(e2).Update("approved_hours", override).Error)

	_, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)

	sheets, err := svc.Approvable(context.Background(), lead)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Alice", sheets[0].OwnerName)
	assert.Equal(t, 12.0, sheets[0].TotalHours)
}

func TestApprovableIncludesUnassigned(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	other := createUser(t, db, "other", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)

	_, err := svc.Submit(context.Background(), owner, ts.ID, nil)
	require.NoError(t, err)

	// No assigned approver: every approver's queue shows it, the owner's none.
	for _, approver := range []*models.User{lead, other} {
		sheets, err := svc.Approvable(context.Background(), approver)
		require.NoError(t, err)
		require.Len(t, sheets, 1)
		assert.Equal(t, ts.ID, sheets[0].ID)
	}
	sheets, err := svc.Approvable(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, sheets)
}

func TestApprovableEmptyForOtherApprover(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)
	other := createUser(t, db, "other", models.RoleTeamLead)
	ts := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)
	_, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
	require.NoError(t, err)

	sheets, err := svc.Approvable(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, sheets)
}

func TestBulkApprovePartialSuccess(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "alice", models.RoleEmployee)
	lead := createUser(t, db, "lead", models.RoleTeamLead)

	var ids []uint
	for m := 1; m <= 2; m++ {
		ts := createTimesheet(t, db, owner, m, 2025, models.StatusDraft)
		_, err := svc.Submit(context.Background(), owner, ts.ID, &lead.ID)
		require.NoError(t, err)
		ids = append(ids, ts.ID)
	}
	draft := createTimesheet(t, db, owner, 3, 2025, models.StatusDraft)
	ids = append(ids, draft.ID, 999)

	res, err := svc.BulkApprove(context.Background(), lead, ids, "")
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 2)
	require.Len(t, res.Failed, 2)
	assert.Contains(t, res.Failed[0], fmt.Sprintf("timesheet %d", draft.ID))
	assert.Contains(t, res.Failed[1], "timesheet 999")

	var reloaded models.Timesheet
	require.NoError(t, db.First(&reloaded, ids[0]).Error)
	assert.Equal(t, models.StatusApproved, reloaded.Status)
}

func TestBulkRejectEmptyComment(t *testing.T) {
	svc, db := newTestService(t)
	lead := createUser(t, db, "lead", models.RoleTeamLead)

	_, err := svc.BulkReject(context.Background(), lead, []uint{1}, "")
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestBulkApproveEmptyList(t *testing.T) {
	svc, db := newTestService(t)
	lead := createUser(t, db, "lead", models.RoleTeamLead)

	_, err := svc.BulkApprove(context.Background(), lead, nil, "")
	require.ErrorIs(t, err, models.ErrValidation)
}
