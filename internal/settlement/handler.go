package settlement

import (
	"errors"
	"time"

	"deora-backend/internal/auth"
	"deora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type GenerateRequest struct {
	BusinessUnit models.BusinessUnit `json:"business_unit"`
	Month        string              `json:"month"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSettlementMissing):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidMonth), errors.Is(err, ErrInvalidUnit):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, err := auth.ResolveUnit(c, models.BusinessUnit(c.Query("business_unit")))
		if err != nil {
			return err
		}
		list, err := svc.List(c.UserContext(), c.Query("month"), unit)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(list)
	}
}

// GenerateHandler generates one unit, or every unit when business_unit is
// empty or "all".
func GenerateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body GenerateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Month == "" {
			body.Month = time.Now().UTC().Format(monthLayout)
		}
		unit, err := auth.ResolveUnit(c, body.BusinessUnit)
		if err != nil {
			return err
		}

		if unit == models.UnitAll {
			list, err := svc.GenerateAll(c.UserContext(), body.Month)
			if err != nil {
				return httpError(err)
			}
			return c.JSON(fiber.Map{"success": true, "settlements": list})
		}

		st, err := svc.Generate(c.UserContext(), unit, body.Month)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "settlement": st})
	}
}

func MarkPaidHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid id")
		}
		st, err := svc.MarkPaid(c.UserContext(), uint(id))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "settlement": st})
	}
}

func CurrentMonthHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := svc.CurrentMonthSummary(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}

func DailyReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day := time.Now().UTC()
		if s := c.Query("date"); s != "" {
			var err error
			if day, err = time.Parse("2006-01-02", s); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
		}
		report, err := svc.DailyReport(c.UserContext(), day)
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}

func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		month := c.Query("month")
		f, err := svc.Export(c.UserContext(), month)
		if err != nil {
			return httpError(err)
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			return err
		}
		c.Attachment(ExportFilename(month))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return c.Send(buf.Bytes())
	}
}
