package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/services"
)

type contextKey string

const (
	userContextKey contextKey = "user"
	roleContextKey contextKey = "admin_role"
)

// Authenticate проверяет Bearer JWT и кладёт claims в контекст запроса.
func Authenticate(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				logger.DebugContext(r.Context(), "rejected token", slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if _, err := userIDFromClaims(claims); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleResolver возвращает эффективную роль администратора пользователя.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID int64) (models.AdminRole, error)
}

// RequirePermission пропускает только пользователей, чья роль даёт perm.
// Должен стоять после Authenticate.
func RequirePermission(resolver RoleResolver, perm services.Permission, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := GetUserIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			role, err := resolver.ResolveRole(r.Context(), userID)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to resolve admin role", slog.Int64("user_id", userID), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
				return
			}
			if !services.HasPermission(role, perm) {
				logger.InfoContext(r.Context(), "permission denied",
					slog.Int64("user_id", userID), slog.String("permission", string(perm)), slog.String("role", role.String()))
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), roleContextKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
