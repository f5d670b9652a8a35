package resolver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ArticlesPipeline/internal/ports"
)

const defaultTimeout = 10 * time.Second

// HTTPResolver follows redirects with HEAD requests.
type HTTPResolver struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.URLResolver = (*HTTPResolver)(nil)

// New builds a resolver. ratePerSecond <= 0 disables throttling.
func New(timeout time.Duration, ratePerSecond float64, log *slog.Logger) *HTTPResolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewWithClient(&http.Client{Timeout: timeout}, ratePerSecond, log)
}

// NewWithClient builds a resolver around an existing client.
func NewWithClient(client *http.Client, ratePerSecond float64, log *slog.Logger) *HTTPResolver {
	r := &HTTPResolver{client: client, logger: log}
	if ratePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return r
}

// Resolve returns the final URL after redirects, or rawURL on any failure.
func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) string {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.warn("resolve throttled", "url", rawURL, "error", err)
			return rawURL
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		r.warn("resolve failed", "url", rawURL, "error", err)
		return rawURL
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.warn("resolve failed", "url", rawURL, "error", err)
		return rawURL
	}
	defer resp.Body.Close()

	if resp.Request == nil || resp.Request.URL == nil {
		return rawURL
	}

	final := resp.Request.URL.String()
	if final != rawURL && r.logger != nil {
		r.logger.Debug("url resolved", "url", rawURL, "final", final)
	}
	return final
}

func (r *HTTPResolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
