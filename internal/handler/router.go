package handler

import (
	"net/http"
	"time"

	"bb-fantasy/internal/middleware"
	"bb-fantasy/internal/service"
	"bb-fantasy/pkg/errors"
	"bb-fantasy/pkg/logger"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries everything the HTTP layer needs
type RouterConfig struct {
	Services       *service.Services
	Logger         *logger.Logger
	AllowedOrigins []string
	AppURL         string
	SecureCookies  bool
	MaxPhotoBytes  int64
	Version        string

	// TrustProxy lets chi's RealIP take the client address from forwarding
	// headers. Only set it behind a proxy that overwrites them.
	TrustProxy bool

	// DB and Cache back /health. Cache may be nil.
	DB    HealthChecker
	Cache HealthChecker
}

// NewRouter builds the chi router with every route
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	svc := cfg.Services
	limiter := svc.RateLimiter

	healthHandler := NewHealthHandler(cfg.DB, cfg.Cache, cfg.Version, log)
	authHandler := NewAuthHandler(svc.Auth, cfg.AppURL, cfg.SecureCookies, log)
	leagueHandler := NewLeagueHandler(svc.League, log)
	meHandler := NewMeHandler(svc.League, cfg.MaxPhotoBytes, log)
	adminHandler := NewAdminHandler(svc.Admin, log)

	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins), log))
	r.Use(middleware.RequestID(log))
	if cfg.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(limiter, "auth:signin", service.LimitEmailSignIn, log)).
				Post("/signin/email", authHandler.SignInEmail)
			r.Get("/callback/email", authHandler.Callback)
			r.With(middleware.OptionalAuth(svc.Auth, log)).Get("/session", authHandler.Session)
			r.Post("/signout", authHandler.SignOut)
		})

		// Public league data
		r.Get("/houseguests", leagueHandler.ListHouseguests)
		r.Get("/houseguests/{slug}", leagueHandler.GetHouseguest)
		r.Get("/history", leagueHandler.History)
		r.Get("/leaderboard", leagueHandler.Leaderboard)
		r.Get("/users/{username}", leagueHandler.UserProfile)

		// Signed-in user
		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.Auth(svc.Auth, log))

			r.With(middleware.RateLimit(limiter, "me:get", service.LimitMeGet, log)).Get("/", meHandler.Get)
			r.With(middleware.RateLimit(limiter, "me:write", service.LimitMeWrite, log)).Post("/", meHandler.Onboard)
			r.With(middleware.RateLimit(limiter, "me:write", service.LimitMeWrite, log)).Put("/", meHandler.Update)
			r.With(middleware.RateLimit(limiter, "me:picks", service.LimitPicks, log)).Post("/picks", meHandler.SubmitPicks)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(svc.Auth, log))
			r.Use(middleware.RequireAdmin(log))

			r.With(middleware.RateLimit(limiter, "admin:week:create", service.LimitWeekCreate, log)).
				Post("/week/create", adminHandler.CreateWeek)
			r.With(middleware.RateLimit(limiter, "admin:week:update", service.LimitWeekUpdate, log)).
				Put("/week/{week}", adminHandler.UpdateWeek)
			r.Put("/houseguest/{id}", adminHandler.UpdateHouseguest)
			r.Post("/houseguests/seed", adminHandler.SeedHouseguests)
			r.Post("/promote", adminHandler.Promote)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, log, errors.NewNotFoundError("Route not found"))
	})

	return r
}
