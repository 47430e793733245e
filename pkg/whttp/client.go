package whttp

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// redactedParams are query parameters that carry credentials.
var redactedParams = []string{"access_token", "access_key", "key", "api_key"}

type LoggingRoundTripper struct {
	Proxied http.RoundTripper
}

func (lrt LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	t0 := time.Now()

	res, err := lrt.Proxied.RoundTrip(req)
	if err != nil {
		slog.WarnContext(req.Context(), "outbound request failed",
			"http.request.method", req.Method,
			"http.request.url", RedactURL(req.URL),
			"http.request.duration_ms", time.Since(t0).Milliseconds(),
			"error", err.Error())
		return res, err
	}

	slog.DebugContext(req.Context(), "outbound request",
		"http.request.method", req.Method,
		"http.request.url", RedactURL(req.URL),
		"http.request.duration_ms", time.Since(t0).Milliseconds(),
		"http.response.status_code", res.StatusCode)

	return res, nil
}

// NewLoggingClient returns a client that logs every outbound call. The
// timeout bounds the whole request, body included.
func NewLoggingClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: LoggingRoundTripper{Proxied: http.DefaultTransport},
		Timeout:   timeout,
	}
}

// RedactURL renders u with credential query parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	var changed bool
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "*****")
			changed = true
		}
	}

	if !changed {
		return u.String()
	}

	redacted := *u
	redacted.RawQuery = q.Encode()
	return redacted.String()
}
