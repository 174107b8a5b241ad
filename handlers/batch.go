package handlers

import (
	"net/http"

	"timesheets/batch"
	"timesheets/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type BatchHandler struct {
	Service  *batch.Service
	Validate *validator.Validate
}

func (h *BatchHandler) RegisterRoutes(r chi.Router) {
	r.Post("/batches", h.Create)
}

func (h *BatchHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/batches/{id}/done", h.MarkDone)
	r.Post("/batches/{id}/reject", h.Reject)
}

type createBatchRequest struct {
	TimesheetIDs []uint `json:"timesheet_ids" validate:"required,min=1"`
	AdminID      uint   `json:"admin_id" validate:"required"`
}

func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	var req createBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "timesheet_ids and admin_id are required")
		return
	}
	res, err := h.Service.Create(r.Context(), actor, req.TimesheetIDs, req.AdminID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *BatchHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.Service.MarkDone(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BatchHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.Service.Reject(r.Context(), actor, id, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
