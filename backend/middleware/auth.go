package middleware

import (
	"studynotion/backend/apperrors"
	"studynotion/backend/config"
	"studynotion/backend/models"
	"studynotion/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const claimsKey = "claims"

// AuthMiddleware verifies the JWT and stores its claims in locals.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractClaimsFromToken(c, cfg)
		if err != nil {
			return utils.Fail(c, err)
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return utils.Fail(c, apperrors.ErrUnauthorized)
		}
		for _, role := range roles {
			if claims.AccountType == role {
				return c.Next()
			}
		}
		return utils.Fail(c, apperrors.NewWithStatus(apperrors.KindAuthorization, fiber.StatusForbidden,
			"This is a protected route for "+joinRoles(roles)))
	}
}

func IsStudent() fiber.Handler    { return RequireRole(models.RoleStudent) }
func IsInstructor() fiber.Handler { return RequireRole(models.RoleInstructor) }
func IsAdmin() fiber.Handler      { return RequireRole(models.RoleAdmin) }

func Claims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(claimsKey).(*utils.Claims)
	return claims
}

// UserID is uuid.Nil on unauthenticated routes.
func UserID(c *fiber.Ctx) uuid.UUID {
	if claims := Claims(c); claims != nil {
		return claims.ID
	}
	return uuid.Nil
}

func joinRoles(roles []models.Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r) + "s"
	}
	return out
}
