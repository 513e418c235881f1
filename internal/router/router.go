package router

import (
	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/handler"
	"github.com/coffrefort/vault-gateway/internal/middleware"
)

// Routes are registered in small groups, one function per concern, so
// main.go reads as a table of the API surface. Middleware stacks are
// passed in rather than constructed here; the router only decides
// which routes get which gates.

// RegisterRoutes registers routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the credential endpoints. Both are rate
// limited since they are the brute-force surface of the service.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterUsers registers account endpoints. /users/me is available to
// any authenticated caller; the management routes are admin only.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, authn echo.MiddlewareFunc) {
	e.GET("/users/me", u.Me, authn)

	admin := e.Group("/users", authn, middleware.RequireAdmin())
	admin.GET("", u.List)
	admin.POST("", u.Create)
	admin.DELETE("/:id", u.Delete)
}

// RegisterWindows registers access-window administration and the
// informational self-check endpoint.
func RegisterWindows(e *echo.Echo, w *handler.WindowHandler, authn echo.MiddlewareFunc) {
	e.POST("/access-windows", w.Set, authn, middleware.RequireAdmin())
	e.GET("/access-windows/:user_id", w.Get, authn)
	e.GET("/check-access", w.CheckAccess, authn)
}

// RegisterDocuments registers the document surface. Everything except
// deletion sits behind the access-window gate: a user outside their
// window can still log in and check their status, but cannot touch
// documents. Deletion is an admin operation and admins are not
// window-restricted in practice, so it carries only the role gate.
// Read endpoints additionally go through the response cache.
func RegisterDocuments(e *echo.Echo, d *handler.DocumentHandler, an *handler.AnalyzeHandler, authn, gate, cache echo.MiddlewareFunc) {
	g := e.Group("", authn, gate)
	g.POST("/documents/upload", d.Upload)
	g.GET("/documents", d.List, cache)
	g.GET("/documents/:id", d.Get, cache)
	g.GET("/files/:name", d.Download)
	g.POST("/documents/analyze", an.Analyze)
	g.POST("/documents/analyze-file/:id", an.AnalyzeFile)

	e.DELETE("/documents/:id", d.Delete, authn, middleware.RequireAdmin())
}

// RegisterSSO registers the Mayan single-sign-on token endpoint.
func RegisterSSO(e *echo.Echo, s *handler.SSOHandler, authn echo.MiddlewareFunc) {
	e.POST("/mayan/sso-token", s.Token, authn)
}
