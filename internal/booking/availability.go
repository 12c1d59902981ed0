package booking

import (
	"time"

	"deora-backend/internal/models"
)

// blockingStatuses hold a room or the venue for their whole interval.
var blockingStatuses = []models.BookingStatus{models.BookingConfirmed, models.BookingCheckedIn}

func Blocking(s models.BookingStatus) bool {
	for _, b := range blockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// Overlaps treats both intervals as closed, so a checkout day that equals
// the next check-in day is a clash.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !bStart.After(aEnd) && !bEnd.Before(aStart)
}

// IsRoomAvailable reports whether no blocking booking of roomID overlaps
// [start, end].
func IsRoomAvailable(roomID uint, bookings []models.Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.RoomID == nil || *b.RoomID != roomID || !Blocking(b.Status) {
			continue
		}
		if Overlaps(start, end, b.StartDate, b.EndDate) {
			return false
		}
	}
	return true
}

// AvailableRooms filters rooms down to those free for [start, end].
func AvailableRooms(rooms []models.Room, bookings []models.Booking, start, end time.Time) []models.Room {
	held := make(map[uint]bool)
	for _, b := range bookings {
		if b.Type != models.BookingHotel || b.RoomID == nil || !Blocking(b.Status) {
			continue
		}
		if Overlaps(start, end, b.StartDate, b.EndDate) {
			held[*b.RoomID] = true
		}
	}

	out := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		if !held[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
