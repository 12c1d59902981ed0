package booking

import (
	"errors"
	"regexp"
)

var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomUnavailable   = errors.New("room is not available for the selected dates")
	ErrRoomInUse         = errors.New("room has active bookings")
	ErrDuplicateRoom     = errors.New("room number already exists")
	ErrInvalidMobile     = errors.New("mobile number must be a valid 10 digit Indian number")
	ErrInvalidDates      = errors.New("end date must not be before start date")
	ErrInvalidType       = errors.New("booking type must be hotel or garden")
	ErrInvalidPayment    = errors.New("invalid payment")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidRoomStatus = errors.New("invalid room status")
	ErrBookingNotPayable = errors.New("booking does not accept payments in its current status")
)
