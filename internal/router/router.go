package router

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/pitchfeed/internal/handlers"
	"github.com/anonto42/pitchfeed/internal/metrics"
	"github.com/anonto42/pitchfeed/internal/middleware"
	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/anonto42/pitchfeed/internal/repositories"
	"github.com/anonto42/pitchfeed/pkg/firebase"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Dependencies are the repositories and services the routes are wired to
type Dependencies struct {
	Users       repositories.UserRepository
	Posts       repositories.PostRepository
	Investments repositories.InvestmentRepository
	Firebase    firebase.TokenVerifier // optional
	Health      map[string]handlers.HealthCheckFunc

	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	JWTSecret      string
	FeedPageSize   int
	BoostRateLimit float64 // boosts per second per user, 0 disables limiting
}

// Migrate runs the PostgreSQL auto-migrations
func Migrate(pgdb *gorm.DB) error {
	return pgdb.AutoMigrate(
		&models.User{},
		&models.Investment{},
	)
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := deps.Logger

	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(deps.Health).HealthCheck)

	// --- Unprotected routes ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Firebase, deps.JWTSecret, log)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Debug().Msg("Auth routes configured.")

	public := e.Group("/api/v1")
	feedHandler := handlers.NewFeedHandler(deps.Posts, deps.FeedPageSize, log)
	feedHandler.RegisterFeedRoutes(public)
	postHandler := handlers.NewPostHandler(deps.Posts, deps.Metrics, log)
	postHandler.RegisterPublicPostRoutes(public)
	log.Debug().Msg("Feed and public post routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	userHandler := handlers.NewUserHandler(deps.Users)
	userHandler.RegisterProfileRoutes(api)

	postHandler.RegisterPostRoutes(api, boostRateLimiter(deps.BoostRateLimit))

	investmentHandler := handlers.NewInvestmentHandler(deps.Investments, deps.Posts, deps.Metrics, log)
	investmentHandler.RegisterInvestmentRoutes(api)
	log.Debug().Msg("Protected routes configured.")
}

// boostRateLimiter limits boosts per authenticated user
func boostRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return nil
	}
	store := eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(math.Ceil(perSecond)),
		ExpiresIn: 3 * time.Minute,
	})
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if claims, ok := middleware.ClaimsFromContext(c); ok {
				return "user:" + strconv.FormatUint(uint64(claims.UserID), 10), nil
			}
			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
