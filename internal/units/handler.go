package units

import (
	"strings"

	"deora-backend/internal/database"
	"deora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UnitResponse struct {
	Unit            models.BusinessUnit `json:"unit"`
	Name            string              `json:"name"`
	OwnerPercentage float64             `json:"owner_percentage"`
	GSTRate         float64             `json:"gst_rate"`
	GSTEnabled      bool                `json:"gst_enabled"`
	UpdatedAt       string              `json:"updated_at"`
}

type UpdateUnitRequest struct {
	Name            *string  `json:"name"`
	OwnerPercentage *float64 `json:"owner_percentage"`
	GSTRate         *float64 `json:"gst_rate"`
	GSTEnabled      *bool    `json:"gst_enabled"`
}

func toResponse(s models.UnitSetting) UnitResponse {
	return UnitResponse{
		Unit:            s.Unit,
		Name:            s.Name,
		OwnerPercentage: s.OwnerPercentage,
		GSTRate:         s.GSTRate,
		GSTEnabled:      s.GSTEnabled,
		UpdatedAt:       s.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// UNIT SETTINGS
// GET /api/units
// ----------------------------------------

func ListUnitsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var settings []models.UnitSetting
		if err := database.DB.Order("unit ASC").Find(&settings).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list units")
		}

		res := make([]UnitResponse, 0, len(settings))
		for _, s := range settings {
			res = append(res, toResponse(s))
		}
		return c.JSON(res)
	}
}

// ----------------------------------------
// PUT /api/units/:unit
// ----------------------------------------

func UpdateUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit := models.BusinessUnit(c.Params("unit"))
		if !unit.Operational() {
			return fiber.NewError(fiber.StatusBadRequest, "unknown business unit")
		}

		var setting models.UnitSetting
		if err := database.DB.First(&setting, "unit = ?", unit).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unit not found")
		}

		var body UpdateUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "unit name cannot be empty")
			}
			setting.Name = name
		}
		if body.OwnerPercentage != nil {
			if *body.OwnerPercentage < 0 || *body.OwnerPercentage > 100 {
				return fiber.NewError(fiber.StatusBadRequest, "owner percentage must be between 0 and 100")
			}
			setting.OwnerPercentage = *body.OwnerPercentage
		}
		if body.GSTRate != nil {
			if *body.GSTRate < 0 || *body.GSTRate > 100 {
				return fiber.NewError(fiber.StatusBadRequest, "gst rate must be between 0 and 100")
			}
			setting.GSTRate = *body.GSTRate
		}
		if body.GSTEnabled != nil {
			setting.GSTEnabled = *body.GSTEnabled
		}

		// Save writes zero values too, so disabling GST sticks.
		if err := database.DB.Save(&setting).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update unit")
		}

		return c.JSON(fiber.Map{"success": true, "unit": toResponse(setting)})
	}
}
