package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"biaswatch/internal/handler/http/auth"
	"biaswatch/internal/handler/http/respond"
	"biaswatch/internal/observability/logging"
	"biaswatch/pkg/ratelimit"
)

// KeyFunc derives the throttle key for a request.
type KeyFunc func(r *http.Request) string

// CallerKey keys authenticated requests by subject ("user:<sub>") and
// everything else by client address ("ip:<addr>").
func CallerKey(ips IPExtractor) KeyFunc {
	if ips == nil {
		ips = RemoteAddrExtractor{}
	}
	return func(r *http.Request) string {
		if sub, ok := auth.SubjectFromContext(r.Context()); ok {
			return "user:" + sub
		}
		ip, err := ips.ExtractIP(r)
		if err != nil {
			return "ip:" + r.RemoteAddr
		}
		return "ip:" + ip
	}
}

// ThrottleResponse is the 429 body.
type ThrottleResponse struct {
	Error      string          `json:"error"`
	RetryAfter int64           `json:"retryAfter"`
	Details    ThrottleDetails `json:"details"`
}

// ThrottleDetails describes the exceeded policy.
type ThrottleDetails struct {
	Limit    int   `json:"limit"`
	WindowMs int64 `json:"windowMs"`
}

// Throttle counts every request against limiter before the handler runs.
// Denied requests get 429 with Retry-After; every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
//
// A failing limiter lets the request through.
func Throttle(limiter ratelimit.Limiter, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	policy := limiter.Policy()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := key(r)
			decision, err := limiter.Check(r.Context(), caller)
			if err != nil {
				logging.ForRequest(r.Context(), logger).Error("throttle check failed, allowing request",
					slog.String("policy", policy.Name),
					slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, decision)

			if !decision.Allowed {
				logging.ForRequest(r.Context(), logger).Warn("request throttled",
					slog.String("policy", decision.Policy),
					slog.String("key", caller),
					slog.Int("limit", decision.Limit),
					slog.Int64("retry_after_s", decision.RetryAfterSeconds()))

				w.Header().Set("Retry-After", strconv.FormatInt(decision.RetryAfterSeconds(), 10))
				msg := policy.Message
				if msg == "" {
					msg = ratelimit.ErrRateLimitExceeded.Error()
				}
				respond.JSON(w, http.StatusTooManyRequests, ThrottleResponse{
					Error:      msg,
					RetryAfter: decision.RetryAfterSeconds(),
					Details: ThrottleDetails{
						Limit:    decision.Limit,
						WindowMs: decision.WindowMillis(),
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d *ratelimit.RateLimitDecision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAtUnix(), 10))
}
