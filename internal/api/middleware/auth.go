// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-classroom/internal/api/shared"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/redact"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
)

// AuthMiddleware turns bearer tokens into caller identities.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates an AuthMiddleware.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	if jwtService == nil {
		panic("jwtService cannot be nil")
	}
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller identity in the request context otherwise.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}
		token, ok := parseBearer(header)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		id, status, msg := m.identify(r, token)
		if status != 0 {
			shared.RespondWithError(w, r, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.WithIdentity(r.Context(), id)))
	})
}

// OptionalAuthenticate lets anonymous requests through. A request that does
// carry a token must carry a valid one.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := parseBearer(header)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		id, status, msg := m.identify(r, token)
		if status != 0 {
			shared.RespondWithError(w, r, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.WithIdentity(r.Context(), id)))
	})
}

// RequireRole rejects authenticated callers whose role is not one of roles.
// It must run after Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.FromContextOrDefault(r.Context(), slog.Default()).Warn("role not permitted",
				slog.String("user_id", id.UserID.String()),
				slog.String("role", string(id.Role)))
			shared.RespondWithError(w, r, http.StatusForbidden, "Role not permitted")
		})
	}
}

func (m *AuthMiddleware) identify(r *http.Request, token string) (domain.Identity, int, string) {
	claims, err := m.jwtService.ValidateToken(r.Context(), token)
	switch {
	case err == nil:
		return claims.Identity(), 0, ""
	case errors.Is(err, auth.ErrExpiredToken):
		return domain.Identity{}, http.StatusUnauthorized, "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return domain.Identity{}, http.StatusUnauthorized, "Invalid token"
	default:
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Error("failed to validate token", "error", redact.Error(err))
		return domain.Identity{}, http.StatusInternalServerError, "Authentication error"
	}
}

func parseBearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
