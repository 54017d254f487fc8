package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTClaimUserID - claim с id пользователя платформы.
const JWTClaimUserID = "id"

// GenerateJWT выпускает токен для пользователя. Роли в токен не пишутся: они читаются из БД.
func GenerateJWT(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		JWTClaimUserID: userID,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
