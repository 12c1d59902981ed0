package auth

import (
	"errors"
	"strings"

	"deora-backend/internal/config"
	"deora-backend/internal/database"
	"deora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterSuperAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Mobile       string              `json:"mobile"`
	Password     string              `json:"password"`
	Role         models.UserRole     `json:"role"`
	BusinessUnit models.BusinessUnit `json:"business_unit"`
}

type UserResponse struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Mobile       string              `json:"mobile,omitempty"`
	Role         models.UserRole     `json:"role"`
	BusinessUnit models.BusinessUnit `json:"business_unit"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Mobile:       u.Mobile,
		Role:         u.Role,
		BusinessUnit: u.BusinessUnit,
	}
}

func RegisterSuperAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
		}
		if err := ValidatePassword(body.Password); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// Only the very first account may be created this way.
		var count int64
		database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleSuperAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "a super admin already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleSuperAdmin,
			BusinessUnit: models.UnitAll,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"user":    toUserResponse(&user),
		})
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		token, err := GenerateToken(cfg.JWT.Secret, cfg.JWT.Expiry, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"token":   token,
			"user":    toUserResponse(&user),
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var user models.User
		if err := database.DB.First(&user, UserIDFrom(c)).Error; err != nil {
			// Token is valid but the account is gone; answer from the claims.
			return c.JSON(fiber.Map{
				"user_id":       c.Locals(CtxUserIDKey),
				"role":          c.Locals(CtxUserRoleKey),
				"business_unit": c.Locals(CtxBusinessUnitKey),
			})
		}

		response := fiber.Map{"user": toUserResponse(&user)}
		if user.BusinessUnit.Operational() {
			var setting models.UnitSetting
			if err := database.DB.First(&setting, "unit = ?", user.BusinessUnit).Error; err == nil {
				response["unit"] = setting
			}
		}
		return c.JSON(response)
	}
}

// CreateUserHandler lets owners and super admins add staff accounts.
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Name == "" || body.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and email are required")
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid role")
		}
		if body.Role == models.RoleSuperAdmin && RoleFrom(c) != models.RoleSuperAdmin {
			return fiber.NewError(fiber.StatusForbidden, "only a super admin can create another super admin")
		}
		if body.BusinessUnit == "" {
			body.BusinessUnit = models.UnitAll
		}
		if !body.BusinessUnit.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid business_unit")
		}
		if body.Mobile != "" && !ValidMobile(body.Mobile) {
			return fiber.NewError(fiber.StatusBadRequest, ErrInvalidMobile.Error())
		}
		if err := ValidatePassword(body.Password); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var existing models.User
		err := database.DB.Where("email = ?", body.Email).First(&existing).Error
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "email is already registered")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			Mobile:       body.Mobile,
			PasswordHash: string(hash),
			Role:         body.Role,
			BusinessUnit: body.BusinessUnit,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"user":    toUserResponse(&user),
		})
	}
}

// ListUsersHandler returns staff accounts, newest first.
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("created_at desc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list users")
		}
		out := make([]UserResponse, 0, len(users))
		for i := range users {
			out = append(out, toUserResponse(&users[i]))
		}
		return c.JSON(out)
	}
}
