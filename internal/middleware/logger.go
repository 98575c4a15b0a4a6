package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// RequestLogger writes one zap line per request. Server errors log at
// error level, client errors at warn, everything else at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo render the error so the status below is final
                c.Error(err)
            }

            status := c.Response().Status
            lvl := zapcore.InfoLevel
            switch {
            case status >= 500:
                lvl = zapcore.ErrorLevel
            case status >= 400:
                lvl = zapcore.WarnLevel
            }

            fields := []zap.Field{
                zap.String("method", c.Request().Method),
                zap.String("path", c.Path()),
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("session_id", sessionID(c)),
                zap.String("user_id", userID(c)),
                zap.String("remote_ip", c.RealIP()),
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }
            if ce := log.Check(lvl, "request"); ce != nil {
                ce.Write(fields...)
            }
            return nil
        }
    }
}
