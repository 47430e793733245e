package middleware

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manzanit0/geosearch/pkg/whttp"
)

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Logger logs one line per inbound request. Response bodies are only logged
// in debug mode since they carry user addresses.
func Logger(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		t0 := time.Now()

		c.Next()

		body := "<redacted>"
		if debug {
			body = w.body.String()
		}

		logFields := []any{
			slog.Group("http",
				slog.Group("request",
					"duration_ms", time.Since(t0).Milliseconds(),
					"method", c.Request.Method,
					"content_length", c.Request.ContentLength,
					"route", c.FullPath(),
					"url", whttp.RedactURL(c.Request.URL),
				),
				slog.Group("response",
					"status", c.Writer.Status(),
					"size", c.Writer.Size(),
					"body", body,
				),
			),
		}

		if len(c.Errors) > 0 {
			logFields = append(logFields, "error", c.Errors.String())
		}

		slog.InfoContext(c.Request.Context(), "inbound request", logFields...)
	}
}
