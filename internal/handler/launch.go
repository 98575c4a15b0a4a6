package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/ggame-miniapp/internal/identity"
    "github.com/iliyamo/ggame-miniapp/internal/session"
)

// LaunchHandler starts and ends sessions.
type LaunchHandler struct {
    Sessions *session.Manager
    Log      *zap.Logger
}

// LaunchRequest is what the renderer posts when the app opens.  Query is
// the raw query string of the launch URL; Host is present only when the
// host runtime is.
type LaunchRequest struct {
    Query string                 `json:"query"`
    Host  *identity.HostSnapshot `json:"host,omitempty"`
}

// LaunchResponse carries the session token and the SDK calls the
// renderer should replay against the real host runtime.
type LaunchResponse struct {
    SessionToken string                `json:"session_token"`
    ExpiresAt    time.Time             `json:"expires_at"`
    SessionID    string                `json:"session_id"`
    Identity     identity.UserIdentity `json:"identity"`
    HostCalls    []identity.HostCall   `json:"host_calls"`
    Theme        *identity.ThemeParams `json:"theme,omitempty"`
}

// Launch handles POST /v1/launch.
func (h *LaunchHandler) Launch(c echo.Context) error {
    var req LaunchRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
    }

    // a nil *HostSnapshot must not become a non-nil HostRuntime
    var host identity.HostRuntime
    if req.Host != nil {
        host = req.Host
    }
    env, err := identity.EnvironmentFromQuery(strings.TrimSpace(req.Query), host)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid launch query"})
    }

    s, tok, err := h.Sessions.Launch(c.Request().Context(), env)
    if err != nil {
        h.logger().Error("launch failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start session"})
    }

    resp := LaunchResponse{
        SessionToken: tok.Token,
        ExpiresAt:    tok.Exp,
        SessionID:    s.ID,
        Identity:     s.Identity,
        HostCalls:    []identity.HostCall{},
    }
    if req.Host != nil {
        resp.HostCalls = req.Host.Calls()
        if t, ok := req.Host.AppliedTheme(); ok {
            resp.Theme = &t
        }
    }
    return c.JSON(http.StatusCreated, resp)
}

// AdoptCredential handles PUT /v1/session/credential with
// {"credential": "..."}.
func (h *LaunchHandler) AdoptCredential(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    var body struct {
        Credential string `json:"credential"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
    }
    if err := s.AdoptCredential(c.Request().Context(), body.Credential); err != nil {
        if errors.Is(err, session.ErrEmptyCredential) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "credential is required"})
        }
        h.logger().Error("adopt credential failed", zap.String("session_id", s.ID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not store credential"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Logout handles POST /v1/logout.  Both stored keys are removed and the
// session token stops working.
func (h *LaunchHandler) Logout(c echo.Context) error {
    s, err := currentSession(c)
    if err != nil {
        return err
    }
    if err := h.Sessions.Logout(c.Request().Context(), s.ID); err != nil {
        h.logger().Error("logout failed", zap.String("session_id", s.ID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

func (h *LaunchHandler) logger() *zap.Logger {
    if h.Log == nil {
        return zap.NewNop()
    }
    return h.Log
}
