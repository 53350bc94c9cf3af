package container

import (
	"fmt"

	"bb-fantasy/internal/config"
	"bb-fantasy/internal/handler"
	"bb-fantasy/internal/repository"
	"bb-fantasy/internal/service"
	"bb-fantasy/internal/service/auth"
	"bb-fantasy/internal/service/scoring"
	"bb-fantasy/pkg/database"
	"bb-fantasy/pkg/logger"
	"bb-fantasy/pkg/redis"
)

// devSessionSecret signs magic links outside production when SESSION_SECRET is unset
const devSessionSecret = "bb-fantasy-development-secret-do-not-use"

// Version is reported by /health
var Version = "dev"

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Services     *service.Services
	Scheduler    *service.Scheduler
}

// New creates a new dependency injection container backed by Postgres
func New(cfg *config.Config, db *database.PostgresDB, logger *logger.Logger) (*Container, error) {
	repos := &repository.Repositories{
		Houseguest:        repository.NewHouseguestRepository(db),
		Week:              repository.NewWeekRepository(db),
		User:              repository.NewUserRepository(db),
		Pick:              repository.NewPickRepository(db),
		Session:           repository.NewSessionRepository(db),
		VerificationToken: repository.NewVerificationTokenRepository(db),
	}

	c, err := NewWithRepositories(cfg, repos, logger)
	if err != nil {
		return nil, err
	}
	c.DB = db
	return c, nil
}

// NewWithRepositories wires services on top of the given repositories
func NewWithRepositories(cfg *config.Config, repos *repository.Repositories, logger *logger.Logger) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	secret := cfg.SessionSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		logger.Warn("SESSION_SECRET not set, using development secret")
		secret = devSessionSecret
	}

	var mailer service.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = service.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridHost, cfg.EmailFrom, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, magic links will be logged instead of emailed")
		mailer = service.NewLogMailer(logger)
	}

	cache := service.NewCacheService(redisClient, logger.Logger)
	limiter := service.NewRateLimiter(redisClient, logger.Logger)
	scorer := scoring.New(cfg.SeasonWeeks)

	authService := auth.NewService(repos.User, repos.Session, repos.VerificationToken, mailer, auth.Config{
		Secret:       []byte(secret),
		AppURL:       cfg.AppURL,
		SessionTTL:   cfg.SessionTTL,
		MagicLinkTTL: cfg.MagicLinkTTL,
		AdminEmails:  cfg.AdminEmails,
	}, logger)

	services := &service.Services{
		Auth:        authService,
		League:      service.NewLeagueService(repos, cache, scorer, logger),
		Admin:       service.NewAdminService(repos, cache, logger),
		RateLimiter: limiter,
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		RedisClient:  redisClient,
		Repositories: repos,
		Services:     services,
		Scheduler:    service.NewScheduler(cfg.SweepSchedule, authService, limiter, logger),
	}, nil
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// RouterConfig returns the HTTP layer settings
func (c *Container) RouterConfig() handler.RouterConfig {
	cfg := handler.RouterConfig{
		Services:       c.Services,
		Logger:         c.Logger,
		AllowedOrigins: c.Config.AllowedOrigins,
		AppURL:         c.Config.AppURL,
		SecureCookies:  c.Config.IsProduction(),
		TrustProxy:     c.Config.TrustProxy,
		MaxPhotoBytes:  c.Config.MaxPhotoBytes,
		Version:        Version,
	}
	// Leave the interfaces nil rather than wrapping nil pointers
	if c.DB != nil {
		cfg.DB = c.DB
	}
	if c.RedisClient != nil {
		cfg.Cache = c.RedisClient
	}
	return cfg
}

// Close releases the Redis connection. The database is owned by the caller.
func (c *Container) Close() error {
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}
