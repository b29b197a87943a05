package router // router wires HTTP routes to their handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/desk-allocation/internal/config"
	"github.com/iliyamo/desk-allocation/internal/handler"
	"github.com/iliyamo/desk-allocation/internal/middleware"
)

// Handlers bundles everything the router needs to wire.
type Handlers struct {
	Auth       *handler.AuthHandler
	Desks      *handler.DeskHandler
	Employees  *handler.EmployeeHandler
	Assignment *handler.AssignmentHandler
	Occupancy  *handler.OccupancyHandler
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register, login,
// refresh and logout live under /v1/auth and need no session; /v1/me
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.Use(middleware.RequireRole("ADMIN", "EMPLOYEE"))
	me.GET("/me", a.Me)
}

// RegisterAPI registers the desk, employee, assignment and occupancy
// endpoints.  Everything requires authentication; inventory and
// directory mutations additionally require the ADMIN role.  The rate
// limiter sits in front of the whole group so allocation bursts from a
// single client cannot starve the store.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	api.Use(middleware.RequireRole("ADMIN", "EMPLOYEE"))
	api.Use(middleware.RateLimit(rl, rdb))

	admin := middleware.RequireRole("ADMIN")

	// Desk inventory.
	api.GET("/desks", h.Desks.List)
	api.GET("/desks/:id", h.Desks.Get)
	api.POST("/desks", h.Desks.Create, admin)
	api.PUT("/desks/:id", h.Desks.Update, admin)
	api.DELETE("/desks/:id", h.Desks.Delete, admin)
	api.PATCH("/desks/:id/status", h.Desks.SetStatus, admin)

	// Employee directory.
	api.GET("/employees", h.Employees.List)
	api.GET("/employees/:id", h.Employees.Get)
	api.POST("/employees", h.Employees.Create, admin)
	api.PUT("/employees/:id/preferences", h.Employees.UpdatePreferences)

	// Allocation.
	api.POST("/assignments/optimal", h.Assignment.FindOptimal)
	api.POST("/assignments", h.Assignment.Assign)
	api.POST("/assignments/by-preferences", h.Assignment.AssignByPreferences)
	api.DELETE("/assignments/:deskID", h.Assignment.Release)
	api.GET("/employees/:id/assignments", h.Assignment.EmployeeAssignments)
	api.GET("/desks/:id/assignment", h.Assignment.DeskAssignment)

	// Reporting.
	api.GET("/occupancy", h.Occupancy.Report)
}
