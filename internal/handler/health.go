package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// SessionCounter reports how many sessions the process holds in memory.
type SessionCounter interface {
    Len() int
}

// HealthHandler serves the liveness check.
type HealthHandler struct {
    Sessions SessionCounter // optional; adds a live session count to the response
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It always
// answers 200 with {"status":"ok"}.
func (h *HealthHandler) Health(c echo.Context) error {
    body := echo.Map{"status": "ok"}
    if h != nil && h.Sessions != nil {
        body["sessions"] = h.Sessions.Len()
    }
    return c.JSON(http.StatusOK, body)
}
