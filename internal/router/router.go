package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/handler"
	"github.com/iliyamo/room-booking/internal/middleware"
	"github.com/iliyamo/room-booking/internal/repository"
	"github.com/iliyamo/room-booking/internal/service"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Cfg      config.Config
	Store    repository.Store
	Services *service.Services
	Redis    *redis.Client  // nil disables rate limiting
	DB       handler.Pinger // nil skips the database check in /healthz
	Log      logrus.FieldLogger
}

// New builds the echo instance with the middleware chain and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger(d.Log))
	e.Use(echomw.Recover())
	e.Use(middleware.Authenticate(d.Cfg.JWTSecret))
	e.Use(middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log))

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, handler.NewAuthHandler(d.Cfg, d.Store))
	RegisterEntities(e, d.Services)
	return e
}

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the token endpoints under /v1/auth and the current
// user endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.RequireAuthenticated())
}

// RegisterEntities registers the CRUD collections. Access control happens
// in the services, so every route is reachable anonymously.
func RegisterEntities(e *echo.Echo, s *service.Services) {
	v1 := e.Group("/v1")

	rooms := handler.NewRoomHandler(s.Rooms)
	v1.GET("/rooms", rooms.List)
	v1.POST("/rooms", rooms.Create)
	v1.GET("/rooms/:id", rooms.Get)
	v1.PUT("/rooms/:id", rooms.Update)
	v1.PATCH("/rooms/:id", rooms.Update)
	v1.DELETE("/rooms/:id", rooms.Delete)

	events := handler.NewEventHandler(s.Events)
	v1.GET("/events", events.List)
	v1.POST("/events", events.Create)
	v1.GET("/events/:id", events.Get)
	v1.PUT("/events/:id", events.Update)
	v1.PATCH("/events/:id", events.Update)
	v1.DELETE("/events/:id", events.Delete)

	reservations := handler.NewReservationHandler(s.Reservations)
	v1.GET("/reservations", reservations.List)
	v1.POST("/reservations", reservations.Create)
	v1.GET("/reservations/:id", reservations.Get)
	v1.PUT("/reservations/:id", reservations.Update)
	v1.PATCH("/reservations/:id", reservations.Update)
	v1.DELETE("/reservations/:id", reservations.Delete)

	users := handler.NewUserHandler(s.Users)
	v1.GET("/users", users.List)
	v1.GET("/users/:id", users.Get)
}
