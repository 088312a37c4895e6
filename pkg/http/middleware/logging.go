package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "github.com/Harry166/stro/pkg/logger"
)

// RequestLogging logs one debug line per request. Websocket upgrades are
// logged when the connection ends, so their duration is the session length.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			l.Debug("http request",
				applogger.String("method", c.Request().Method),
				applogger.String("route", c.Path()),
				applogger.String("uri", c.Request().RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("duration_ms", time.Since(start)),
			)
			return err
		}
	}
}
