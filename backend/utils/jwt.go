package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/models"
)

// TokenCookie is the cookie login sets alongside the JSON token.
const TokenCookie = "token"

type Claims struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	AccountType models.Role `json:"accountType"`
	jwt.RegisteredClaims
}

func GenerateJWTToken(user *models.User, cfg *config.Config) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:          user.ID,
		Email:       user.Email,
		AccountType: user.AccountType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWTTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func ParseJWTToken(tokenString string, cfg *config.Config) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewWithStatus(apperrors.KindAuthorization, fiber.StatusUnauthorized, "Token is invalid")
	}
	if claims.ID == uuid.Nil {
		return nil, apperrors.NewWithStatus(apperrors.KindAuthorization, fiber.StatusUnauthorized, "Invalid user ID in token")
	}
	return claims, nil
}

// ExtractClaimsFromToken reads the token from "Authorization: Bearer" or the token cookie.
func ExtractClaimsFromToken(c *fiber.Ctx, cfg *config.Config) (*Claims, error) {
	tokenString := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	if tokenString == "" {
		tokenString = c.Cookies(TokenCookie)
	}
	if tokenString == "" {
		return nil, apperrors.NewWithStatus(apperrors.KindAuthorization, fiber.StatusUnauthorized, "Token is missing")
	}
	return ParseJWTToken(tokenString, cfg)
}
