package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

type CtxKey string

const (
	CtxKeyTraceID   CtxKey = "trace_id"
	CtxKeySessionID CtxKey = "session_id"
)

// HeaderTraceID lets a caller propagate its own trace id. It is echoed back
// on every response.
const HeaderTraceID = "X-Trace-Id"

func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = ksuid.New().String()
		}

		ctx := context.WithValue(c.Request.Context(), CtxKeyTraceID, traceID)
		c.Request = c.Request.Clone(ctx)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// WithSessionID tags ctx so that log lines carry the address session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxKeySessionID, id)
}
