package middleware

import (
	"context"
	"strings"

	"github.com/flowdesk/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// profilingSkipPrefixes are routes not worth labelling
var profilingSkipPrefixes = []string{"/health", "/metrics", "/swagger"}

// Profiling attaches route, method and API area labels to the CPU samples
// taken while the request runs, so Pyroscope can slice profiles per
// endpoint. It is a no-op when profiling is disabled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range profilingSkipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		route := c.FullPath()
		labels := map[string]string{
			telemetry.ProfilingLabelMethod: c.Request.Method,
			telemetry.ProfilingLabelRoute:  route,
			telemetry.ProfilingLabelArea:   routeArea(route),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// routeArea returns the first static segment after the API scope, e.g.
// "files" for /api/tenant/:tenantId/files/:fileId
func routeArea(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i, part := range parts {
		if part == "" || strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			continue
		}
		if i == 0 && part == "api" {
			continue
		}
		if i == 1 && (part == "tenant" || part == "account") {
			continue
		}
		return part
	}
	return ""
}
