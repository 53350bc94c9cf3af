package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/middleware"
	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the admin-only endpoints
type AdminHandler struct {
	admin  service.AdminService
	logger *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin service.AdminService, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

type promoteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateWeek handles POST /api/admin/week/create
func (h *AdminHandler) CreateWeek(w http.ResponseWriter, r *http.Request) {
	week, err := h.admin.CreateWeek(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.audit(r, "week.create", week.Number)
	respondJSON(w, http.StatusCreated, week)
}

// UpdateWeek handles PUT /api/admin/week/{week}. Absent fields are left
// alone; null clears.
func (h *AdminHandler) UpdateWeek(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil || number < 1 {
		respondError(w, r, h.logger, errors.NewValidationError("Invalid week number", nil))
		return
	}

	var update domain.WeekUpdate
	if err := decodeStrict(w, r, &update); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	week, err := h.admin.UpdateWeek(r.Context(), number, update)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.audit(r, "week.update", number)
	respondJSON(w, http.StatusOK, week)
}

// UpdateHouseguest handles PUT /api/admin/houseguest/{id}
func (h *AdminHandler) UpdateHouseguest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update domain.HouseguestUpdate
	if err := decodeStrict(w, r, &update); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	hg, err := h.admin.UpdateHouseguest(r.Context(), id, update)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.audit(r, "houseguest.update", id)
	respondJSON(w, http.StatusOK, hg)
}

// SeedHouseguests handles POST /api/admin/houseguests/seed
func (h *AdminHandler) SeedHouseguests(w http.ResponseWriter, r *http.Request) {
	houseguests, err := h.admin.SeedHouseguests(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.audit(r, "houseguests.seed", len(houseguests))
	respondJSON(w, http.StatusOK, successResponse{
		Success: true,
		Data:    houseguests,
	})
}

// Promote handles POST /api/admin/promote
func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	user, err := h.admin.Promote(r.Context(), req.Email)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.audit(r, "user.promote", user.ID)
	respondJSON(w, http.StatusOK, domain.NewSessionUser(user))
}

func (h *AdminHandler) audit(r *http.Request, action string, target interface{}) {
	fields := map[string]interface{}{
		"action":     action,
		"target":     target,
		"request_id": middleware.GetRequestID(r.Context()),
	}
	if admin := middleware.GetUser(r.Context()); admin != nil {
		fields["admin_id"] = admin.ID
	}
	h.logger.WithFields(fields).Info("Admin action")
}

// decodeStrict decodes a partial-update body, rejecting unknown fields
func decodeStrict(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("Invalid JSON body", map[string]interface{}{"reason": err.Error()})
	}
	return nil
}
