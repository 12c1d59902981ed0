package booking

import (
	"errors"
	"fmt"
	"time"

	"deora-backend/internal/models"
	"deora-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

type CreateBookingRequest struct {
	CreateInput
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type StatusRequest struct {
	Status models.BookingStatus `json:"status"`
}

// httpError maps domain errors to HTTP errors.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrRoomNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrRoomUnavailable), errors.Is(err, ErrRoomInUse),
		errors.Is(err, ErrDuplicateRoom), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrBookingNotPayable):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidMobile), errors.Is(err, ErrInvalidDates),
		errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrInvalidRoomStatus), errors.Is(err, pricing.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func parseDate(s, field string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", field))
	}
	return t, nil
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func ListBookingsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		typ := models.BookingType(c.Query("type"))
		if typ != "" && !typ.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, ErrInvalidType.Error())
		}
		list, err := svc.List(c.UserContext(), typ)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

func GetBookingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		b, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(b)
	}
}

// AvailabilityHandler answers with the free rooms for the range, and with
// a yes/no for a single room when room_id is given.
func AvailabilityHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, err := parseDate(c.Query("start"), "start")
		if err != nil {
			return err
		}
		end, err := parseDate(c.Query("end"), "end")
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fiber.NewError(fiber.StatusBadRequest, ErrInvalidDates.Error())
		}

		if raw := c.Query("room_id"); raw != "" {
			var roomID uint
			if _, err := fmt.Sscan(raw, &roomID); err != nil || roomID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid room_id")
			}
			ok, err := svc.CheckAvailability(c.UserContext(), start, end, &roomID)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"room_id": roomID, "available": ok})
		}

		if c.Query("type") == string(models.BookingGarden) {
			ok, err := svc.CheckAvailability(c.UserContext(), start, end, nil)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"available": ok})
		}

		return c.JSON(fiber.Map{"rooms": svc.AvailableRooms(c.UserContext(), start, end)})
	}
}

func CreateBookingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBookingRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		in := body.CreateInput
		var err error
		if in.StartDate, err = parseDate(body.StartDate, "start_date"); err != nil {
			return err
		}
		if in.EndDate, err = parseDate(body.EndDate, "end_date"); err != nil {
			return err
		}

		b, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "booking": b})
	}
}

func AddPaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body PaymentInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		b, err := svc.AddPayment(c.UserContext(), id, body)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "booking": b})
	}
}

func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		b, err := svc.UpdateStatus(c.UserContext(), id, body.Status)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "booking": b})
	}
}

func ReconcileHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		b, changed, err := svc.Reconcile(c.UserContext(), id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "updated": changed, "booking": b})
	}
}

func DeleteBookingHandler(svc *Service) fiber.Handler {
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

func ListRoomsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := models.RoomStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, ErrInvalidRoomStatus.Error())
		}
		rooms, err := svc.ListRooms(c.UserContext(), status)
		if err != nil {
			return err
		}
		return c.JSON(rooms)
	}
}

func CreateRoomHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RoomInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		room, err := svc.CreateRoom(c.UserContext(), body)
		if err != nil {
			if errors.Is(err, ErrDuplicateRoom) || errors.Is(err, ErrInvalidRoomStatus) {
				return httpError(err)
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "room": room})
	}
}

func UpdateRoomHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body RoomInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		room, err := svc.UpdateRoom(c.UserContext(), id, body)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true, "room": room})
	}
}

func DeleteRoomHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteRoom(c.UserContext(), id); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func ActiveBookingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		b, err := svc.ActiveForRoom(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"booking": b})
	}
}
