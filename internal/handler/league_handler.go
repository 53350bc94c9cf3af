package handler

import (
	"net/http"
	"strings"

	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// LeagueHandler serves the public league endpoints
type LeagueHandler struct {
	league service.LeagueService
	logger *logger.Logger
}

// NewLeagueHandler creates a new league handler
func NewLeagueHandler(league service.LeagueService, logger *logger.Logger) *LeagueHandler {
	return &LeagueHandler{
		league: league,
		logger: logger,
	}
}

// ListHouseguests handles GET /api/houseguests[?q=]
func (h *LeagueHandler) ListHouseguests(w http.ResponseWriter, r *http.Request) {
	houseguests, err := h.league.ListHouseguests(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCached(w, r, 30, houseguests)
}

// GetHouseguest handles GET /api/houseguests/{slug}
func (h *LeagueHandler) GetHouseguest(w http.ResponseWriter, r *http.Request) {
	hg, err := h.league.GetHouseguest(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCached(w, r, 30, hg)
}

// History handles GET /api/history[?desc=1]
func (h *LeagueHandler) History(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.league.History(r.Context(), isTruthy(r.URL.Query().Get("desc")))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCached(w, r, 30, weeks)
}

// Leaderboard handles GET /api/leaderboard
func (h *LeagueHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.league.Leaderboard(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCached(w, r, 30, entries)
}

// UserProfile handles GET /api/users/{username}
func (h *LeagueHandler) UserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.league.PublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondCached(w, r, 30, profile)
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
