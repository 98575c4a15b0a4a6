package middleware

// identity.go holds the context keys SessionAuth fills in and the helpers
// that read them back. Handlers and other middleware use these rather than
// c.Get with string literals.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ggame-miniapp/internal/session"
)

const (
    ctxSession   = "session"
    ctxSessionID = "session_id"
    ctxUserID    = "user_id"
)

// CurrentSession returns the session attached by SessionAuth.
func CurrentSession(c echo.Context) (*session.Session, bool) {
    s, ok := c.Get(ctxSession).(*session.Session)
    return s, ok && s != nil
}

// sessionID returns the authenticated session id, or "anon" on routes
// without SessionAuth.
func sessionID(c echo.Context) string {
    if v, ok := c.Get(ctxSessionID).(string); ok && v != "" {
        return v
    }
    return "anon"
}

// userID returns the player id carried by the session token, or "guest".
func userID(c echo.Context) string {
    if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
        return v
    }
    return "guest"
}
