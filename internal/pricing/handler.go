package pricing

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type QuoteRequest struct {
	Base            float64 `json:"base"`
	DiscountPercent float64 `json:"discount_percent"`
	GSTRate         float64 `json:"gst_rate"`
}

// QuoteHandler previews a price breakdown without persisting anything.
func QuoteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body QuoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := Validate(body.Base, body.DiscountPercent, body.GSTRate); err != nil {
			if errors.Is(err, ErrInvalidInput) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"quote":   Calculate(body.Base, body.DiscountPercent, body.GSTRate),
		})
	}
}
