package middleware

import (
	"time"

	applogger "FinSignal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every HTTP request at debug level.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			l.Debug("http request",
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency_ms", time.Since(start)),
			)
			return err
		}
	}
}
