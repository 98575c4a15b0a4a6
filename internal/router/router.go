package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/ggame-miniapp/internal/handler" // handlers for launch, view and catalog routes
)

// RegisterRoutes registers routes that do not require a session on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", h.Health)
}

// RegisterLaunch registers the session lifecycle routes.  Launch is open
// because it is how a session token is obtained; the credential and
// logout routes run behind the session middleware passed as auth.
func RegisterLaunch(e *echo.Echo, l *handler.LaunchHandler, auth echo.MiddlewareFunc) {
	e.POST("/v1/launch", l.Launch)

	e.PUT("/v1/session/credential", l.AdoptCredential, auth)
	e.POST("/v1/logout", l.Logout, auth)
}

// RegisterView registers the per-session view routes.  Reads refresh the
// view store; mutations additionally pass through limit, the per-session
// rate limiter.
func RegisterView(e *echo.Echo, v *handler.ViewHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/view", auth)
	g.GET("", v.Get)
	g.POST("/profile", v.FetchProfile)
	g.POST("/user", v.FetchUser)
	g.POST("/deck", v.FetchDeck)
	g.POST("/inventory", v.FetchInventory)
	g.POST("/templates", v.FetchTemplates)
	g.DELETE("/error", v.ClearError)

	// Mutations: the view store refetches dependent state after each one.
	g.POST("/deck/cards", v.AddCard, limit)
	g.DELETE("/deck/cards/:position", v.RemoveCard, limit)
	g.POST("/shop/acquire", v.Acquire, limit)
	g.POST("/cards/:id/sell", v.Sell, limit)
}

// RegisterCatalog registers the knowledge-base reads.  Responses are
// shared between players, so cache sits after auth and keys on the route
// and query only.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, auth, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/catalog", auth, cache)
	g.GET("/universes", h.Universes)
	g.GET("/seasons", h.Seasons)
	g.GET("/items", h.Items)
	g.GET("/overview", h.Overview)
}
