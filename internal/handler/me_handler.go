package handler

import (
	"encoding/base64"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/middleware"
	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"
)

// MeHandler serves the signed-in user's own endpoints
type MeHandler struct {
	league        service.LeagueService
	maxPhotoBytes int64
	logger        *logger.Logger
}

// NewMeHandler creates a new handler. maxPhotoBytes bounds uploaded photos.
func NewMeHandler(league service.LeagueService, maxPhotoBytes int64, logger *logger.Logger) *MeHandler {
	return &MeHandler{
		league:        league,
		maxPhotoBytes: maxPhotoBytes,
		logger:        logger,
	}
}

type profileForm struct {
	Username string `json:"username" validate:"required,username"`
}

type picksRequest struct {
	Picks []string `json:"picks" validate:"required,len=5,unique,dive,required"`
}

// Get handles GET /api/me
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	me, err := h.league.Me(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	respondJSON(w, http.StatusOK, me)
}

// Onboard handles POST /api/me (multipart: username, photo). Both are required.
func (h *MeHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	update, err := h.readProfile(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	updated, err := h.league.CompleteOnboarding(r.Context(), user.ID, update)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Update handles PUT /api/me (multipart or JSON: username, optional photo)
func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	update, err := h.readProfile(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	updated, err := h.league.UpdateProfile(r.Context(), user.ID, update)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// SubmitPicks handles POST /api/me/picks
func (h *MeHandler) SubmitPicks(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req picksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.league.SubmitPicks(r.Context(), user.ID, req.Picks); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, successResponse{
		Success: true,
		Data:    map[string]interface{}{"picks": req.Picks},
	})
}

// readProfile accepts a multipart form with an optional "photo" file, or a
// JSON body with just the username.
func (h *MeHandler) readProfile(w http.ResponseWriter, r *http.Request) (domain.ProfileUpdate, error) {
	var update domain.ProfileUpdate

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var form profileForm
		if err := decodeJSON(w, r, &form); err != nil {
			return update, err
		}
		update.Username = strings.TrimSpace(form.Username)
		return update, nil
	}

	// Room for the photo plus the text fields
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPhotoBytes+64<<10)
	if err := r.ParseMultipartForm(h.maxPhotoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return update, photoTooLarge(h.maxPhotoBytes)
		}
		return update, errors.NewValidationError("Invalid form data", nil)
	}

	form := profileForm{Username: strings.TrimSpace(r.FormValue("username"))}
	if err := validateStruct(&form); err != nil {
		return update, err
	}
	update.Username = form.Username

	photo, err := h.readPhoto(r)
	if err != nil {
		return update, err
	}
	update.PhotoURL = photo
	return update, nil
}

// readPhoto returns the "photo" upload as a data URL, or "" when absent
func (h *MeHandler) readPhoto(r *http.Request) (string, error) {
	file, header, err := r.FormFile("photo")
	if stderrors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errors.NewValidationError("Invalid photo upload", nil)
	}
	defer file.Close()

	if header.Size > h.maxPhotoBytes {
		return "", photoTooLarge(h.maxPhotoBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxPhotoBytes+1))
	if err != nil {
		return "", errors.NewValidationError("Invalid photo upload", nil)
	}
	if int64(len(data)) > h.maxPhotoBytes {
		return "", photoTooLarge(h.maxPhotoBytes)
	}
	if len(data) == 0 {
		return "", nil
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.NewValidationError("Photo must be an image", map[string]interface{}{
			"contentType": contentType,
		})
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func photoTooLarge(limit int64) error {
	return errors.NewValidationError("Photo is too large", map[string]interface{}{
		"maxBytes": limit,
	})
}
