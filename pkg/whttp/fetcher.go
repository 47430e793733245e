package whttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// FetchError is the normalized failure of a Fetcher call. StatusCode is zero
// when the request never got a response (transport error, timeout, rate
// limiter gave up).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("GET %s: %s", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher issues rate-limited JSON GET requests against a single upstream.
type Fetcher struct {
	h         *http.Client
	limiter   *rate.Limiter
	userAgent string
}

type FetcherOption func(*Fetcher)

// WithRateLimit caps requests per second, allowing bursts of up to burst
// requests.
func WithRateLimit(rps float64, burst int) FetcherOption {
	return func(f *Fetcher) {
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

func NewFetcher(h *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		h:       h,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Wait blocks until the rate limiter admits one more request. It is exposed
// for calls that go through a different client but share the same quota.
func (f *Fetcher) Wait(ctx context.Context) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	return nil
}

// GetJSON fetches rawURL and decodes a 2xx JSON body into v.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &FetchError{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}

	redacted := RedactURL(u)

	if err := f.Wait(ctx); err != nil {
		return &FetchError{URL: redacted, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &FetchError{URL: redacted, Err: fmt.Errorf("build request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	res, err := f.h.Do(req)
	if err != nil {
		return &FetchError{URL: redacted, Err: err}
	}

	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return &FetchError{URL: redacted, StatusCode: res.StatusCode, Err: fmt.Errorf("status %s", res.Status)}
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return &FetchError{URL: redacted, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}
