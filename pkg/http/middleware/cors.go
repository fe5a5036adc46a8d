package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS returns CORS middleware. A "*" origin echoes back the caller's Origin.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" || !allowed(cfg.AllowOrigins, origin) {
				return next(c)
			}
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

func allowed(origins []string, origin string) bool {
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
