package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/streampulse/user-service/docs"
	"github.com/streampulse/user-service/internal/api/handler"
	"github.com/streampulse/user-service/internal/api/middleware"
	"github.com/streampulse/user-service/internal/core/ports"
	"github.com/streampulse/user-service/internal/core/service"
	"github.com/streampulse/user-service/internal/infrastructure/config"
	mongodb "github.com/streampulse/user-service/internal/infrastructure/db/mongo"
	redisdb "github.com/streampulse/user-service/internal/infrastructure/db/redis"
	"github.com/streampulse/user-service/internal/token"
)

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, storage ports.ObjectStorage, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: true,
	}))
	e.Use(echoprometheus.NewMiddleware("userservice"))

	// --- Dependencies ---
	accessCodec := token.NewCodec(cfg.Auth.AccessSecret, cfg.Auth.AccessTTL)
	refreshCodec := token.NewCodec(cfg.Auth.RefreshSecret, cfg.Auth.RefreshTTL)

	userRepo := mongodb.NewUserRepository(db)
	subRepo := mongodb.NewSubscriptionRepository(db)
	profileCache := redisdb.NewProfileCache(rdb)

	sessions := service.NewSessionManager(userRepo, accessCodec, refreshCodec, log)
	users := service.NewUserService(userRepo, sessions, storage, log)
	channels := service.NewChannelService(subRepo, profileCache, log)

	userHandler := handler.NewUserHandler(users, sessions, cfg.Auth.CookieSecure)
	channelHandler := handler.NewChannelHandler(channels)
	guard := middleware.Auth(accessCodec, userRepo)

	// --- User routes ---
	v1 := e.Group("/api/v1/users")
	v1.POST("/register", userHandler.Register)
	v1.POST("/login", userHandler.Login)
	v1.POST("/refresh-token", userHandler.Refresh)

	v1.POST("/logout", userHandler.Logout, guard)
	v1.POST("/change-password", userHandler.ChangePassword, guard)
	v1.GET("/current-user", userHandler.CurrentUser, guard)
	v1.PATCH("/update-account", userHandler.UpdateAccount, guard)
	v1.PATCH("/avatar", userHandler.UpdateAvatar, guard)
	v1.PATCH("/cover-image", userHandler.UpdateCoverImage, guard)

	v1.GET("/c/:username", channelHandler.Profile, guard)
	v1.GET("/history", channelHandler.WatchHistory, guard)

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	return e
}
