// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"time"

	"confide/internal/config"
	"confide/internal/featureflags"
	"confide/internal/middleware"
	"confide/internal/models"
	"confide/internal/notifications"
	"confide/internal/observability"
	"confide/internal/service"
	"confide/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators a Server is built from. Store and Config are
// required; the rest fall back to in-process defaults.
type Deps struct {
	Config   *config.Config
	Store    *store.Store
	DB       *gorm.DB
	Redis    *redis.Client
	Bus      notifications.Bus
	Flags    *featureflags.Manager
	Presence *service.PresenceService
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *store.Store
	db             *gorm.DB
	redis          *redis.Client
	bus            notifications.Bus
	hub            *notifications.Hub
	presence       *service.PresenceService
	featureFlags   *featureflags.Manager
	promMiddleware *fiberprometheus.FiberPrometheus
	app            *fiber.App
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
}

// New creates a server and builds its fiber app.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.Store == nil {
		return nil, errors.New("server requires a config and a store")
	}
	middleware.InitMiddleware(deps.Config)

	s := &Server{
		config:         deps.Config,
		store:          deps.Store,
		db:             deps.DB,
		redis:          deps.Redis,
		bus:            deps.Bus,
		presence:       deps.Presence,
		featureFlags:   deps.Flags,
		promMiddleware: middleware.InitMetrics("confide-api"),
	}
	if s.bus == nil {
		s.bus = notifications.NewMemoryBus()
	}
	if s.featureFlags == nil {
		s.featureFlags = featureflags.NewManager(deps.Config.FeatureFlags)
	}
	if s.presence == nil {
		ttl := time.Duration(deps.Config.PresenceTTLSeconds) * time.Second
		s.presence = service.NewPresenceService(deps.Redis, deps.Store, ttl)
	}
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())

	s.hub = notifications.NewHub(deps.Store.IsRoomMember)
	s.hub.SetConnectionCallbacks(
		func(userID string) {
			if err := s.presence.Connect(context.Background(), userID); err != nil {
				observability.GlobalLogger.Warn("presence connect failed", "user_id", userID, "error", err)
			}
		},
		func(userID string) {
			if err := s.presence.Disconnect(context.Background(), userID); err != nil {
				observability.GlobalLogger.Warn("presence disconnect failed", "user_id", userID, "error", err)
			}
		},
	)

	app := fiber.New(fiber.Config{
		AppName: "Confide API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return s, nil
}

// App returns the fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *notifications.Hub {
	return s.hub
}

// SetupMiddleware configures the global middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagate request, user and trace ids into the request context.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     joinOrigins(s.config.Origins()),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	perMinute := s.config.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 120
	}
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// WebSocket clients pass the token as a query parameter.
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebSocketHandler())

	protected := api.Group("", middleware.AuthRequired)

	protected.Get("/feature-flags", s.GetFeatureFlags)

	users := protected.Group("/users")
	users.Get("/me", s.GetMe)
	users.Get("/", s.ListUsers)
	users.Get("/by-username/:username", s.GetUserByUsername)
	users.Get("/:id", s.GetUser)

	credits := protected.Group("/credits")
	credits.Get("/", s.GetBalance)
	credits.Post("/topup", middleware.RateLimit(s.redis, 10, time.Minute, "topup"), s.TopUp)

	prefs := protected.Group("/preferences")
	prefs.Get("/", s.GetPreferences)
	prefs.Put("/", s.UpdatePreferences)

	messages := protected.Group("/messages")
	messages.Post("/", middleware.RateLimit(s.redis, 60, time.Minute, "send_message"), s.SendMessage)
	messages.Get("/conversation/:userId", s.GetConversation)
	messages.Post("/:id/read", s.MarkMessageRead)

	rooms := protected.Group("/rooms")
	rooms.Get("/", s.ListRooms)
	rooms.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_room"), s.CreateRoom)
	rooms.Post("/join-secret", middleware.RateLimit(s.redis, 10, time.Minute, "join_secret"), s.JoinSuperSecretRoom)
	rooms.Get("/:id", s.GetRoom)
	rooms.Post("/:id/join", s.JoinRoom)
	rooms.Post("/:id/leave", s.LeaveRoom)
	rooms.Get("/:id/messages", s.GetRoomMessages)
	rooms.Post("/:id/messages", middleware.RateLimit(s.redis, 60, time.Minute, "room_message"), s.SendRoomMessage)
	rooms.Post("/:id/kick/:userId", s.KickUser)
	rooms.Post("/:id/ban/:userId", s.BanUser)
	rooms.Post("/:id/admins/:userId", s.MakeAdmin)

	friends := protected.Group("/friends")
	friends.Get("/", s.ListFriends)
	friends.Get("/requests", s.ListFriendRequests)
	friends.Post("/requests/:userId", s.SendFriendRequest)
	friends.Post("/add", s.AddFriendByUsername)
	friends.Post("/requests/:id/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:id/decline", s.DeclineFriendRequest)

	confessions := protected.Group("/confessions")
	confessions.Get("/", s.ListConfessions)
	confessions.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "confession"), s.CreateConfession)
	confessions.Get("/:id", s.GetConfession)
	confessions.Put("/:id", s.EditConfession)
	confessions.Delete("/:id", s.DeleteConfession)
	confessions.Post("/:id/like", s.LikeConfession)
	confessions.Post("/:id/save", s.SaveConfession)
	confessions.Post("/:id/comments", middleware.RateLimit(s.redis, 30, time.Minute, "comment"), s.AddComment)
	confessions.Post("/:id/comments/:commentId/like", s.LikeComment)

	referrals := protected.Group("/referrals")
	referrals.Get("/", s.ListReferralLinks)
	referrals.Post("/", s.CreateReferralLink)
	referrals.Post("/redeem", s.RedeemReferralCode)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.ListNotifications)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional; a
// configured but unreachable Redis makes the node unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "unavailable"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overallStatus,
		"version": s.store.Version(),
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Wire subscribes the hub to the bus until Shutdown.
func (s *Server) Wire() error {
	return s.hub.StartWiring(s.shutdownCtx, s.bus)
}

// Start wires the hub and listens until Shutdown.
func (s *Server) Start() error {
	if err := s.Wire(); err != nil {
		return err
	}
	observability.GlobalLogger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the HTTP server and the hub. The caller owns
// the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		observability.GlobalLogger.Error("error shutting down HTTP server", "error", err)
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		observability.GlobalLogger.Error("error shutting down hub", "error", err)
	}

	observability.GlobalLogger.Info("server shutdown complete")
	return nil
}
