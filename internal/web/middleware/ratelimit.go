package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/trackerhq/tracker/internal/web/models"
)

// RateLimitConfig caps requests per window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Rate limits.
var (
	// LoginRateLimit applies to POST /login, which hits the backend's
	// credential check.
	LoginRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// UploadRateLimit applies to image uploads.
	UploadRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit applies to everything else.
	StandardRateLimit = RateLimitConfig{RequestLimit: 300, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client IP.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceeded(cfg)),
	)
}

func rateLimitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		problem.Instance = r.URL.Path
		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}
