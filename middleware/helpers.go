package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/utils"
)

var ErrNoUserInContext = errors.New("user claims not found in context")

func GetUserIDFromContext(ctx context.Context) (int64, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, ErrNoUserInContext
	}
	return userIDFromClaims(claims)
}

// GetRoleFromContext returns the role checked by RequirePermission, zero if the route had no gate.
func GetRoleFromContext(ctx context.Context) models.AdminRole {
	role, _ := ctx.Value(roleContextKey).(models.AdminRole)
	return role
}

func userIDFromClaims(claims jwt.MapClaims) (int64, error) {
	raw, ok := claims[utils.JWTClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", utils.JWTClaimUserID)
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		// json числа приходят как float64; id платформы укладывается в 2^53
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("'%s' claim is not an integer", utils.JWTClaimUserID)
		}
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("'%s' claim is not an integer", utils.JWTClaimUserID)
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("'%s' claim is not an integer", utils.JWTClaimUserID)
		}
		id = n
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: %T", utils.JWTClaimUserID, raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid user id in '%s' claim", utils.JWTClaimUserID)
	}
	return id, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
