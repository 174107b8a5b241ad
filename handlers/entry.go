package handlers

import (
	"net/http"
	"time"

	"timesheets/middleware"
	"timesheets/timesheet"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type EntryHandler struct {
	Service  *timesheet.Service
	Validate *validator.Validate
}

func (h *EntryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/entries", h.Create)
	r.Put("/entries/{id}", h.Update)
	r.Delete("/entries/{id}", h.Delete)
}

// RegisterAdminRoutes mounts the hour-override endpoint; the router wraps it
// with the admin role guard.
func (h *EntryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/entries/{id}/hours", h.OverrideHours)
}

type entryRequest struct {
	Date        string  `json:"date" validate:"required"`
	Hours       float64 `json:"hours" validate:"min=0,max=24"`
	Description string  `json:"description"`
	ProjectID   *uint   `json:"project_id"`
	TaskID      *uint   `json:"task_id"`
}

func (h *EntryHandler) parse(w http.ResponseWriter, r *http.Request) (timesheet.EntryInput, bool) {
	var req entryRequest
	if !decodeJSON(w, r, &req) {
		return timesheet.EntryInput{}, false
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "date is required and hours must be between 0 and 24")
		return timesheet.EntryInput{}, false
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return timesheet.EntryInput{}, false
	}
	return timesheet.EntryInput{
		Date:        date,
		Hours:       req.Hours,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
	}, true
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.LogEntry(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.UpdateEntry(r.Context(), actor, id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteEntry(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type overrideRequest struct {
	ApprovedHours *float64 `json:"approved_hours" validate:"required"`
	Note          string   `json:"note"`
}

func (h *EntryHandler) OverrideHours(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "approved_hours is required")
		return
	}
	entry, err := h.Service.OverrideHours(r.Context(), actor, id, *req.ApprovedHours, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
