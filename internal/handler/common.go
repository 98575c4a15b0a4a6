// Package handler exposes the HTTP handlers of the gateway: launch and
// logout, the per-session view, and catalogue reads.
package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ggame-miniapp/internal/middleware"
    "github.com/iliyamo/ggame-miniapp/internal/pipeline"
    "github.com/iliyamo/ggame-miniapp/internal/session"
)

// errNoSession is returned by handlers mounted without SessionAuth.
var errNoSession = echo.NewHTTPError(http.StatusUnauthorized, "no session")

// currentSession returns the session attached by SessionAuth.
func currentSession(c echo.Context) (*session.Session, error) {
    s, ok := middleware.CurrentSession(c)
    if !ok {
        return nil, errNoSession
    }
    return s, nil
}

// backendError maps a pipeline failure to a gateway response.  Client
// errors keep the backend status; everything else is a bad gateway.
func backendError(c echo.Context, err error) error {
    apiErr := pipeline.Normalize(err)
    status := http.StatusBadGateway
    if apiErr.HasStatus() && apiErr.Status >= 400 && apiErr.Status < 500 {
        status = apiErr.Status
    }
    return c.JSON(status, echo.Map{"error": apiErr.Message, "backend_status": apiErr.Status})
}
