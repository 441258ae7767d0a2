// Package auth authenticates API callers with HS256 bearer JWTs and exposes
// the caller's subject to downstream handlers and the throttler.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biaswatch/internal/handler/http/respond"
	"biaswatch/internal/observability/logging"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxSubject ctxKey = "subject"

// MinSecretLength is the shortest JWT_SECRET accepted.
const MinSecretLength = 32

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
	errExpiredToken = errors.New("token expired")
)

// SubjectFromContext returns the authenticated subject ("sub" claim).
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ctxSubject).(string)
	return sub, ok && sub != ""
}

// WithSubject stores an authenticated subject in ctx.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxSubject, sub)
}

// Authz requires a valid bearer token on every non-public endpoint.
//
// An empty secret disables authentication: requests pass through without
// identity and are throttled by client address.
func Authz(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(secret) == 0 {
		logger.Warn("JWT_SECRET not set, API authentication disabled")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sub, err := validateJWT(r.Header.Get("Authorization"), secret, time.Now())
			RecordAuthCheckDuration(time.Since(start))
			if err != nil {
				RecordAuthRequest(resultLabel(err))
				logging.ForRequest(r.Context(), logger).Warn("authentication failed",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()))
				respond.SafeError(w, http.StatusUnauthorized, respond.NewAppError(http.StatusUnauthorized, "unauthorized", nil))
				return
			}

			RecordAuthRequest("success")
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}

func validateJWT(header string, secret []byte, now time.Time) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(header[len(prefix):]), claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errExpiredToken
		}
		return "", errInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, errMissingToken):
		return "missing"
	case errors.Is(err, errExpiredToken):
		return "expired"
	default:
		return "invalid"
	}
}
