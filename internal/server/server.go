// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"undertone/internal/cache"
	"undertone/internal/config"
	"undertone/internal/database"
	"undertone/internal/email"
	"undertone/internal/featureflags"
	"undertone/internal/middleware"
	"undertone/internal/mlclient"
	"undertone/internal/repository"
	"undertone/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	ml             mlclient.Inference
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo         repository.UserRepository
	verificationRepo repository.VerificationRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	communityRepo    repository.CommunityRepository

	featureFlags      *featureflags.Manager
	signupService     *service.SignupService
	postService       *service.PostService
	commentService    *service.CommentService
	searchService     *service.SearchService
	enrichmentService *service.EnrichmentService
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	ml := mlclient.New(cfg.MLServiceURL, time.Duration(cfg.MLTimeoutSeconds)*time.Second)

	var mailer email.Sender
	m := email.NewMailer(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if m.IsConfigured() {
		mailer = m
	}

	return NewServerWithDeps(cfg, db, redisClient, ml, mailer)
}

// The Fiber middleware registers its collectors with the global Prometheus
// registry, which tolerates only one registration per process.
var (
	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

func promMiddleware() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = fiberprometheus.New("undertone-api")
	})
	return promInstance
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use this with an in-memory database and stubbed inference.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	ml mlclient.Inference,
	mailer email.Sender,
) (*Server, error) {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		ml:               ml,
		promMiddleware:   promMiddleware(),
		userRepo:         repository.NewUserRepository(db),
		verificationRepo: repository.NewVerificationRepository(db),
		postRepo:         repository.NewPostRepository(db),
		commentRepo:      repository.NewCommentRepository(db),
		communityRepo:    repository.NewCommunityRepository(db),
		featureFlags:     featureflags.NewManager(cfg.FeatureFlags),
	}

	server.signupService = service.NewSignupService(
		server.verificationRepo,
		server.userRepo,
		mailer,
		db,
		time.Duration(cfg.OTPExpiryMinutes)*time.Minute,
		cfg.OTPMaxAttempts,
		0,
	)
	server.enrichmentService = service.NewEnrichmentService(
		server.postRepo,
		server.commentRepo,
		ml,
		server.featureFlags,
		cfg.ToxicityFlagThreshold,
	)
	server.postService = service.NewPostService(server.postRepo, server.communityRepo, server.enrichmentService)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo, server.enrichmentService)
	server.searchService = service.NewSearchService(server.postRepo, server.userRepo, ml, server.featureFlags)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Undertone Backend Metrics Dashboard",
	}))

	// Auth routes: the three-step signup flow plus login
	auth := api.Group("/auth")
	auth.Post("/signup/start", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup_start"), s.SignupStart)
	auth.Post("/signup/verify-otp", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signup_verify"), s.SignupVerifyOTP)
	auth.Post("/signup/complete", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signup_complete"), s.SignupComplete)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Public post routes (browse/search)
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/search", middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.SearchPosts)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	publicPosts.Get("/:id/comments/tree", s.GetCommentTree)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id/emotions", s.GetPostEmotions)
	publicPosts.Get("/:id/similar", s.GetSimilarPosts)
	publicPosts.Get("/:id", s.GetPost)

	// Public community routes
	communities := api.Group("/communities")
	communities.Get("/", s.GetCommunities)
	communities.Get("/:slug/posts", s.GetCommunityPosts)
	communities.Get("/:slug", s.GetCommunityBySlug)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Get("/me/recommendations", s.GetMyRecommendations)
	users.Get("/:id/posts", s.GetUserPosts)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/upvote", s.UpvotePost)
	posts.Post("/:id/downvote", s.DownvotePost)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Delete("/:id", s.DeletePost)

	protected.Post("/summarize", middleware.RateLimit(
		s.redis, 10, time.Minute, "summarize"), s.Summarize)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. The inference service is
// reported but never gates readiness; the API serves degraded without it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	mlStatus := "unreachable"
	if s.ml.HealthCheck(ctx) {
		mlStatus = "healthy"
	}

	status := fiber.StatusOK
	overall := "ready"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "not ready"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database":  dbStatus,
			"redis":     redisStatus,
			"inference": mlStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases the server's database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
