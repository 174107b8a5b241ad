package handlers

import (
	"net/http"

	"timesheets/middleware"
	"timesheets/timesheet"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type TimesheetHandler struct {
	Service  *timesheet.Service
	Validate *validator.Validate
}

func (h *TimesheetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/timesheets/approvable", h.Approvable)
	r.Post("/timesheets/{id}/submit", h.Submit)
	r.Post("/timesheets/{id}/approve", h.Approve)
	r.Post("/timesheets/{id}/reject", h.Reject)
	r.Post("/timesheets/{id}/finish", h.Finish)
	r.Post("/timesheets/{id}/submit-to-admin", h.SubmitToAdmin)
	r.Post("/timesheets/bulk-approve", h.BulkApprove)
	r.Post("/timesheets/bulk-reject", h.BulkReject)
}

type submitRequest struct {
	ApproverID *uint `json:"approver_id"`
}

func (h *TimesheetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	ts, err := h.Service.Submit(r.Context(), actor, id, req.ApproverID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (h *TimesheetHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	ts, err := h.Service.Approve(r.Context(), actor, id, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

type rejectRequest struct {
	Comment string `json:"comment" validate:"required"`
}

func (h *TimesheetHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "comment is required")
		return
	}
	ts, err := h.Service.Reject(r.Context(), actor, id, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *TimesheetHandler) Finish(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ts, err := h.Service.Finish(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

type submitToAdminRequest struct {
	AdminID uint `json:"admin_id" validate:"required"`
}

func (h *TimesheetHandler) SubmitToAdmin(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req submitToAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "admin_id is required")
		return
	}
	ts, err := h.Service.SubmitToAdmin(r.Context(), actor, id, req.AdminID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *TimesheetHandler) Approvable(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	sheets, err := h.Service.Approvable(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheets)
}

type bulkRequest struct {
	TimesheetIDs []uint `json:"timesheet_ids" validate:"required,min=1"`
	Comment      string `json:"comment"`
}

func (h *TimesheetHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	var req bulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "timesheet_ids must not be empty")
		return
	}
	res, err := h.Service.BulkApprove(r.Context(), actor, req.TimesheetIDs, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TimesheetHandler) BulkReject(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	var req bulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "timesheet_ids must not be empty")
		return
	}
	res, err := h.Service.BulkReject(r.Context(), actor, req.TimesheetIDs, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
