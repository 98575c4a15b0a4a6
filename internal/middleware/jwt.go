package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // context for session lookups
    "errors"   // errors.Is to tell unknown sessions from store failures
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/ggame-miniapp/internal/identity" // identity source carried by the token
    "github.com/iliyamo/ggame-miniapp/internal/session"  // session lookup and errors
    "github.com/iliyamo/ggame-miniapp/internal/utils"    // session token parsing
)

// SessionLookup finds a live session by id, rebuilding it with the
// token's identity source when it is no longer in memory.
// *session.Manager implements it.
type SessionLookup interface {
    Resume(ctx context.Context, id string, src identity.Source) (*session.Session, error)
}

// SessionAuth returns an Echo middleware that validates the Bearer session
// token issued by the launch endpoint and attaches the session to the
// request context.  Handlers read it back with CurrentSession.
func SessionAuth(secret string, sessions SessionLookup) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseSessionToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // The token may outlive the in-memory session; Get restores it
            // from the credential store when it can.
            s, err := sessions.Resume(c.Request().Context(), claims.Subject, identity.Source(claims.Source))
            if errors.Is(err, session.ErrNotFound) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session ended"})
            }
            if err != nil {
                c.Logger().Errorf("session lookup %s: %v", claims.Subject, err)
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session store unavailable"})
            }

            c.Set(ctxSession, s)
            c.Set(ctxSessionID, s.ID)
            c.Set(ctxUserID, claims.UserID)
            return next(c)
        }
    }
}
