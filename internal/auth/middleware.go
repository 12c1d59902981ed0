package auth

import (
	"fmt"
	"strings"

	"deora-backend/internal/config"
	"deora-backend/internal/database"
	"deora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	CtxUserIDKey       = "user_id"
	CtxUserRoleKey     = "user_role"
	CtxBusinessUnitKey = "business_unit"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "could not read token claims")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxBusinessUnitKey, claims.BusinessUnit)

		return c.Next()
	}
}

func RoleFrom(c *fiber.Ctx) models.UserRole {
	role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return role
}

func UnitFrom(c *fiber.Ctx) models.BusinessUnit {
	unit, _ := c.Locals(CtxBusinessUnitKey).(models.BusinessUnit)
	return unit
}

func UserIDFrom(c *fiber.Ctx) uint {
	id, _ := c.Locals(CtxUserIDKey).(uint)
	return id
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "missing role")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
	}
}

// RequireFinancial lets owners, super admins and unit managers through.
func RequireFinancial() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !RoleFrom(c).CanAccessFinancials() {
			return fiber.NewError(fiber.StatusForbidden, "financial data is restricted to managers")
		}
		return c.Next()
	}
}

// ResolveUnit narrows a requested unit filter to what the caller may see.
// Callers bound to a single unit get that unit when they ask for nothing
// or "all", and a 403 when they ask for another unit.
func ResolveUnit(c *fiber.Ctx, requested models.BusinessUnit) (models.BusinessUnit, error) {
	if requested != "" && !requested.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid business_unit")
	}

	role, own := RoleFrom(c), UnitFrom(c)
	if role.SeesAllUnits() || own == models.UnitAll || own == "" {
		if requested == "" {
			return models.UnitAll, nil
		}
		return requested, nil
	}

	if requested == "" || requested == models.UnitAll || requested == own {
		return own, nil
	}
	return "", fiber.NewError(fiber.StatusForbidden, "no access to this business unit")
}

// RequireUnitAccess guards routes that carry the unit in a path or query
// parameter.
func RequireUnitAccess(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit := models.BusinessUnit(c.Params(param))
		if unit == "" {
			unit = models.BusinessUnit(c.Query(param))
		}
		if unit == "" {
			return c.Next()
		}
		if !models.CanAccessUnit(RoleFrom(c), UnitFrom(c), unit) {
			return fiber.NewError(fiber.StatusForbidden, "no access to this business unit")
		}
		return c.Next()
	}
}

type passwordConfirmation struct {
	Password string `json:"password"`
}

// ConfirmPassword re-authenticates the caller before destructive actions.
// The request body must carry the caller's own password.
func ConfirmPassword() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body passwordConfirmation
		if err := c.BodyParser(&body); err != nil || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "password confirmation is required")
		}

		var user models.User
		if err := database.DB.First(&user, UserIDFrom(c)).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "user not found")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusForbidden, "password confirmation failed")
		}
		return c.Next()
	}
}
