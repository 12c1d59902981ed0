package billing

import (
	"errors"
	"fmt"
	"time"

	"deora-backend/internal/auth"
	"deora-backend/internal/models"
	"deora-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
)

type PaymentRequest struct {
	Method     models.PaymentMethod `json:"method"`
	AmountPaid float64              `json:"amount_paid"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrBillNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidBill), errors.Is(err, ErrInvalidPeriod), errors.Is(err, pricing.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

// parsePeriod reads from/to (YYYY-MM-DD). Missing values default to the
// current month up to today.
func parsePeriod(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var err error
	if s := c.Query("from"); s != "" {
		if from, err = time.Parse(reportDateLayout, s); err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = time.Parse(reportDateLayout, s); err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
	}
	if from.After(to) {
		return from, to, fiber.NewError(fiber.StatusBadRequest, ErrInvalidPeriod.Error())
	}
	return from, to, nil
}

func CreateBillHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		unit, err := auth.ResolveUnit(c, body.BusinessUnit)
		if err != nil {
			return err
		}
		body.BusinessUnit = unit

		bill, err := svc.Create(c.UserContext(), body)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "bill": bill})
	}
}

func ListBillsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, err := auth.ResolveUnit(c, models.BusinessUnit(c.Query("business_unit")))
		if err != nil {
			return err
		}
		limit := 0
		if s := c.Query("limit"); s != "" {
			fmt.Sscan(s, &limit)
		}
		bills, err := svc.List(c.UserContext(), unit, limit)
		if err != nil {
			return err
		}
		return c.JSON(bills)
	}
}

func GetBillHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		bill, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return httpError(err)
		}
		if _, err := auth.ResolveUnit(c, bill.BusinessUnit); err != nil {
			return err
		}
		return c.JSON(bill)
	}
}

func ProcessPaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body PaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		existing, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return httpError(err)
		}
		if _, err := auth.ResolveUnit(c, existing.BusinessUnit); err != nil {
			return err
		}
		bill, err := svc.ProcessPayment(c.UserContext(), id, body.Method, body.AmountPaid)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "bill": bill})
	}
}

func DeleteBillHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func GSTReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parsePeriod(c)
		if err != nil {
			return err
		}
		unit, err := auth.ResolveUnit(c, models.BusinessUnit(c.Query("business_unit")))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"bills":   svc.GSTReport(c.UserContext(), from, to, unit),
		})
	}
}

func GSTSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parsePeriod(c)
		if err != nil {
			return err
		}
		unit, err := auth.ResolveUnit(c, models.BusinessUnit(c.Query("business_unit")))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"summary": svc.GSTSummary(c.UserContext(), from, to, unit),
		})
	}
}

func GSTExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parsePeriod(c)
		if err != nil {
			return err
		}
		unit, err := auth.ResolveUnit(c, models.BusinessUnit(c.Query("business_unit")))
		if err != nil {
			return err
		}

		f, err := ExportGST(svc.GSTReport(c.UserContext(), from, to, unit))
		if err != nil {
			return err
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Attachment(ExportFilename(from, to, unit))
		return c.Send(buf.Bytes())
	}
}

// DailyRevenueHandler answers the paid revenue of one day. The unit guard
// runs as route middleware; with no unit given a unit-bound caller sees
// their own unit.
func DailyRevenueHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day := time.Now()
		if s := c.Query("date"); s != "" {
			d, err := time.Parse(reportDateLayout, s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			day = d
		}

		unit := models.BusinessUnit(c.Query("business_unit"))
		if unit == "" {
			unit = auth.UnitFrom(c)
		}
		if unit == "" {
			unit = models.UnitAll
		}
		if !unit.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid business_unit")
		}

		revenue, err := svc.DailyRevenue(c.UserContext(), unit, day)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success":       true,
			"date":          day.Format(reportDateLayout),
			"business_unit": unit,
			"revenue":       revenue,
		})
	}
}
