package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logpkg "github.com/benvon/sculptor/internal/logger"
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier validates a bearer token and returns its identity claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.JWTClaims, error)
}

// DevUserClaims identify the single user requests run as when authentication is disabled
var DevUserClaims = models.JWTClaims{
	Iss:   "local",
	Sub:   "dev",
	Email: "dev@localhost",
	Name:  "Local Developer",
}

// Auth creates authentication middleware. Verified claims are mapped to a
// stable user id and stored in the request context.
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := request.BearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Debug("token_verification_failed",
						zap.String("path", logpkg.SanitizePath(r.URL.Path)),
						zap.String("error", logpkg.SanitizeError(err)),
					)
				}
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := request.WithUser(r.Context(), models.UserFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NoAuth runs every request as the development user. Only wired when AUTH_DISABLED is set.
func NoAuth() func(http.Handler) http.Handler {
	user := models.UserFromClaims(&DevUserClaims)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := *user
			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), &u)))
		})
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
