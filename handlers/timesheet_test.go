package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"timesheets/database"
	"timesheets/middleware"
	"timesheets/models"
	"timesheets/timesheet"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// withUser stands in for the auth middleware in handler tests.
func withUser(u *models.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserContextKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTimesheetRouter(t *testing.T, db *gorm.DB, actor *models.User) *chi.Mux {
	t.Helper()
	h := &TimesheetHandler{
		Service:  timesheet.NewService(db, zerolog.Nop()),
		Validate: validator.New(),
	}
	router := chi.NewRouter()
	router.Use(withUser(actor))
	h.RegisterRoutes(router)
	return router
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := models.User{Username: username, FullName: username, PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedTimesheet(t *testing.T, db *gorm.DB, user *models.User, status models.Status) *models.Timesheet {
	t.Helper()
	ts := models.Timesheet{UserID: user.ID, Month: 3, Year: 2025, Status: status}
	require.NoError(t, db.Create(&ts).Error)
	return &ts
}

func TestSubmitEndpoint(t *testing.T) {
	db := newHandlerTestDB(t)
	owner := seedUser(t, db, "alice", models.RoleEmployee)
	ts := seedTimesheet(t, db, owner, models.StatusDraft)
	router := newTimesheetRouter(t, db, owner)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/timesheets/%d/submit", ts.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string           `json:"status"`
		Data   models.Timesheet `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, models.StatusSubmitted, body.Data.Status)
}

func TestSubmitEndpointNotFound(t *testing.T) {
	db := newHandlerTestDB(t)
	owner := seedUser(t, db, "alice", models.RoleEmployee)
	router := newTimesheetRouter(t, db, owner)

	req := httptest.NewRequest(http.MethodPost, "/timesheets/999/submit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveEndpointConflict(t *testing.T) {
	db := newHandlerTestDB(t)
	owner := seedUser(t, db, "alice", models.RoleEmployee)
	admin := seedUser(t, db, "admin", models.RoleAdmin)
	ts := seedTimesheet(t, db, owner, models.StatusDraft)
	router := newTimesheetRouter(t, db, admin)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/timesheets/%d/approve", ts.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRejectEndpointRequiresComment(t *testing.T) {
	db := newHandlerTestDB(t)
	owner := seedUser(t, db, "alice", models.RoleEmployee)
	lead := seedUser(t, db, "lead", models.RoleTeamLead)
	ts := seedTimesheet(t, db, owner, models.StatusSubmitted)
	router := newTimesheetRouter(t, db, lead)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/timesheets/%d/reject", ts.ID), strings.NewReader(`{"comment":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var reloaded models.Timesheet
	require.NoError(t, db.First(&reloaded, ts.ID).Error)
	assert.Equal(t, models.StatusSubmitted, reloaded.Status)
}

func TestBulkApproveEndpointEmptyIDs(t *testing.T) {
	db := newHandlerTestDB(t)
	lead := seedUser(t, db, "lead", models.RoleTeamLead)
	router := newTimesheetRouter(t, db, lead)

	req := httptest.NewRequest(http.MethodPost, "/timesheets/bulk-approve", strings.NewReader(`{"timesheet_ids":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidIDParam(t *testing.T) {
	db := newHandlerTestDB(t)
	owner := seedUser(t, db, "alice", models.RoleEmployee)
	router := newTimesheetRouter(t, db, owner)

	req := httptest.NewRequest(http.MethodPost, "/timesheets/abc/submit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
