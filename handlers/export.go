package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"

	"timesheets/middleware"
	"timesheets/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ExportHandler struct {
	DB       *gorm.DB
	Validate *validator.Validate
	Log      zerolog.Logger
}

func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/export/csv", h.ExportCSV)
}

// ExportCSV sends the period's entries with their effective hours as CSV. The
// export is recorded only after the download went out in full, so a failed
// generation or an aborted download leaves no ExportLog row.
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if !user.CanExport() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	dh := DashboardHandler{Validate: h.Validate}
	q, ok := dh.period(w, r)
	if !ok {
		return
	}

	var entries []models.TimesheetEntry
	err := h.DB.WithContext(r.Context()).
		Joins("JOIN timesheets ON timesheets.id = timesheet_entries.timesheet_id").
		Where("timesheets.month = ? AND timesheets.year = ?", q.Month, q.Year).
		Preload("Timesheet").
		Preload("Timesheet.User").
		Preload("Project").
		Order("timesheet_entries.date asc, timesheet_entries.id asc").
		Find(&entries).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write([]string{"Employee", "Date", "Logged Hours", "Effective Hours", "Project", "Status", "Description"})
	for i := range entries {
		e := &entries[i]
		projectName := ""
		if e.Project != nil {
			projectName = e.Project.Name
		}
		writer.Write([]string{
			e.Timesheet.User.DisplayName(),
			e.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", e.LoggedHours),
			fmt.Sprintf("%.2f", e.EffectiveHours()),
			projectName,
			string(e.Timesheet.Status),
			e.Description,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("timesheets_%d_%02d.csv", q.Year, q.Month)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		// The client went away mid-download; not recorded as an export.
		return
	}

	exportLog := models.ExportLog{
		ActorID:  user.ID,
		Month:    q.Month,
		Year:     q.Year,
		Filename: filename,
		Rows:     len(entries),
	}
	if err := h.DB.WithContext(r.Context()).Create(&exportLog).Error; err != nil {
		h.Log.Error().Err(err).Msg("failed to record export")
	}
}
