package handler

import (
	"net/http"
	"net/url"
	"time"

	"bb-fantasy/internal/domain"
	"bb-fantasy/internal/middleware"
	"bb-fantasy/internal/service"
	"bb-fantasy/internal/service/auth"
	"bb-fantasy/pkg/logger"
)

// AuthHandler handles magic-link sign-in and sessions
type AuthHandler struct {
	auth         service.AuthService
	appURL       string
	secureCookie bool
	logger       *logger.Logger
}

// NewAuthHandler creates a new auth handler. appURL is the origin users are
// redirected to after the callback.
func NewAuthHandler(authService service.AuthService, appURL string, secureCookie bool, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		appURL:       appURL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signInRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// SignInEmail handles POST /api/auth/signin/email
func (h *AuthHandler) SignInEmail(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.auth.RequestMagicLink(r.Context(), req.Email); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: "Check your email for a sign-in link",
	})
}

// Callback handles GET /api/auth/callback/email?token=
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.CompleteMagicLink(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		code := auth.CallbackErrorCode(err)
		h.logger.WithError(err).WithField("code", code).Info("Magic link callback failed")
		http.Redirect(w, r, h.appURL+"/auth/signin?error="+url.QueryEscape(code), http.StatusFound)
		return
	}

	http.SetCookie(w, h.sessionCookie(session))
	http.Redirect(w, r, h.appURL+"/welcome", http.StatusFound)
}

type sessionResponse struct {
	User *domain.SessionUser `json:"user"`
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	user := middleware.GetUser(r.Context())
	if user == nil {
		respondJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{User: domain.NewSessionUser(user)})
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), middleware.SessionToken(r)); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *AuthHandler) sessionCookie(session *domain.Session) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Expires,
		MaxAge:   int(time.Until(session.Expires).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
