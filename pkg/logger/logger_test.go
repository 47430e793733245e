package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manzanit0/geosearch/pkg/logger"
	"github.com/manzanit0/geosearch/pkg/middleware"
)

func TestContextJSONHandler(t *testing.T) {
	testCases := []struct {
		desc string
		ctx  context.Context
		want map[string]string
	}{
		{
			desc: "no ids in context",
			ctx:  context.Background(),
			want: map[string]string{},
		},
		{
			desc: "trace id only",
			ctx:  context.WithValue(context.Background(), middleware.CtxKeyTraceID, "2Xy7"),
			want: map[string]string{"trace_id": "2Xy7"},
		},
		{
			desc: "trace and session ids",
			ctx:  middleware.WithSessionID(context.WithValue(context.Background(), middleware.CtxKeyTraceID, "2Xy7"), "2Xz9"),
			want: map[string]string{"trace_id": "2Xy7", "session_id": "2Xz9"},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			var buf bytes.Buffer
			l := slog.New(logger.NewContextJSONHandler(&buf, nil)).With("service", "test")

			l.InfoContext(tC.ctx, "hello")

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, "hello", line["msg"])
			assert.Equal(t, "test", line["service"])

			for _, k := range []string{"trace_id", "session_id"} {
				want, ok := tC.want[k]
				if !ok {
					assert.NotContains(t, line, k)
					continue
				}
				assert.Equal(t, want, line[k])
			}
		})
	}
}
