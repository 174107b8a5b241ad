package handlers

import (
	"net/http"
	"strconv"

	"timesheets/dashboard"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type DashboardHandler struct {
	Service  *dashboard.Service
	Validate *validator.Validate
}

func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/stats", h.Stats)
}

type periodQuery struct {
	Month int `validate:"required,min=1,max=12"`
	Year  int `validate:"required,min=2000,max=2100"`
}

func (h *DashboardHandler) period(w http.ResponseWriter, r *http.Request) (periodQuery, bool) {
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	q := periodQuery{Month: month, Year: year}
	if err := h.Validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "month must be 1-12 and year 2000-2100")
		return periodQuery{}, false
	}
	return q, true
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q, ok := h.period(w, r)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(r.Context(), q.Month, q.Year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
