package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deora-backend/internal/events"
	"deora-backend/internal/models"
	"deora-backend/internal/pricing"
	"deora-backend/internal/sequence"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	seq    sequence.Sequencer
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, seq sequence.Sequencer, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{db: db, seq: seq, events: pub, log: log, now: time.Now}
}

type CreateInput struct {
	Type            models.BookingType   `json:"type"`
	CustomerMobile  string               `json:"customer_mobile"`
	CustomerName    string               `json:"customer_name"`
	RoomID          *uint                `json:"room_id"`
	StartDate       time.Time            `json:"-"`
	EndDate         time.Time            `json:"-"`
	TotalAmount     float64              `json:"total_amount"`
	BasePrice       *float64             `json:"base_price"`
	DiscountPercent float64              `json:"discount_percent"`
	GSTEnabled      bool                 `json:"gst_enabled"`
	GSTPercentage   float64              `json:"gst_percentage"`
	AdvancePayment  float64              `json:"advance_payment"`
	AdvanceMethod   models.PaymentMethod `json:"advance_method"`
	EventType       string               `json:"event_type"`
	EventTime       string               `json:"event_time"`
	GuestCount      *int                 `json:"guest_count"`
	Notes           string               `json:"notes"`
}

type PaymentInput struct {
	Amount float64              `json:"amount"`
	Method models.PaymentMethod `json:"method"`
	Type   models.PaymentType   `json:"type"`
	Notes  string               `json:"notes"`
}

// AvailableRooms lists rooms free for [start, end]. Query failures are
// logged and produce an empty list.
func (s *Service) AvailableRooms(ctx context.Context, start, end time.Time) []models.Room {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.RoomAvailable).
		Order("number").
		Find(&rooms).Error; err != nil {
		s.log.Error("available rooms: load rooms", zap.Error(err))
		return []models.Room{}
	}

	bookings, err := s.blockingBookings(s.db.WithContext(ctx), models.BookingHotel, nil, start, end)
	if err != nil {
		s.log.Error("available rooms: load bookings", zap.Error(err))
		return []models.Room{}
	}
	return AvailableRooms(rooms, bookings, start, end)
}

// CheckAvailability checks a single room, or the garden venue when roomID
// is nil.
func (s *Service) CheckAvailability(ctx context.Context, start, end time.Time, roomID *uint) (bool, error) {
	typ := models.BookingGarden
	if roomID != nil {
		typ = models.BookingHotel
	}
	bookings, err := s.blockingBookings(s.db.WithContext(ctx), typ, roomID, start, end)
	if err != nil {
		return false, err
	}
	if roomID != nil {
		return IsRoomAvailable(*roomID, bookings, start, end), nil
	}
	for _, b := range bookings {
		if b.RoomID == nil && Overlaps(start, end, b.StartDate, b.EndDate) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) blockingBookings(tx *gorm.DB, typ models.BookingType, roomID *uint, start, end time.Time) ([]models.Booking, error) {
	q := tx.Where("type = ? AND status IN ?", typ, blockingStatuses).
		Where("start_date <= ? AND end_date >= ?", end, start)
	if roomID != nil {
		q = q.Where("room_id = ?", *roomID)
	}
	var out []models.Booking
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func validateCreate(in *CreateInput) error {
	in.CustomerMobile = strings.TrimSpace(in.CustomerMobile)
	if !mobilePattern.MatchString(in.CustomerMobile) {
		return ErrInvalidMobile
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || in.EndDate.Before(in.StartDate) {
		return ErrInvalidDates
	}
	if in.AdvanceMethod == "" {
		in.AdvanceMethod = models.MethodCash
	}
	if !in.AdvanceMethod.Valid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, in.AdvanceMethod)
	}
	base := in.TotalAmount
	if in.BasePrice != nil {
		base = *in.BasePrice
	}
	return pricing.Validate(base, in.DiscountPercent, in.GSTPercentage)
}

// Create prices and stores a booking. For hotel rooms the room row is
// locked while the overlap check and insert run, so two concurrent
// requests for the same dates cannot both succeed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Booking, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	base := in.TotalAmount
	if in.BasePrice != nil {
		base = *in.BasePrice
	}
	gstRate := 0.0
	if in.GSTEnabled {
		gstRate = in.GSTPercentage
	}
	quote := pricing.Calculate(base, in.DiscountPercent, gstRate)

	paid := in.AdvancePayment
	if paid < 0 {
		paid = 0
	}
	if paid > quote.Final {
		paid = quote.Final
	}

	now := s.now()
	b := &models.Booking{
		Type:            in.Type,
		CustomerMobile:  in.CustomerMobile,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		RoomID:          in.RoomID,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		BasePrice:       base,
		DiscountPercent: in.DiscountPercent,
		DiscountAmount:  quote.DiscountAmount,
		GSTEnabled:      in.GSTEnabled,
		GSTPercentage:   gstRate,
		GSTAmount:       quote.GSTAmount,
		TotalAmount:     quote.Final,
		Status:          models.BookingConfirmed,
		AdvancePayment:  paid,
		EventType:       in.EventType,
		EventTime:       in.EventTime,
		GuestCount:      in.GuestCount,
		Notes:           in.Notes,
	}

	if paid > 0 {
		// Counters live outside the booking transaction.
		receipt, err := s.seq.Next(ctx, sequence.DayKey(receiptPrefix(in.Type), now))
		if err != nil {
			return nil, fmt.Errorf("receipt number: %w", err)
		}
		b.Payments = append(b.Payments, models.Payment{
			ID:            uuid.NewString(),
			Amount:        paid,
			Type:          models.PaymentAdvance,
			Method:        in.AdvanceMethod,
			Date:          now,
			ReceiptNumber: receipt,
		})
	}
	Apply(b)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.RoomID != nil {
			var room models.Room
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, *in.RoomID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrRoomNotFound
				}
				return err
			}
			clashes, err := s.blockingBookings(tx, in.Type, in.RoomID, in.StartDate, in.EndDate)
			if err != nil {
				return err
			}
			if !IsRoomAvailable(room.ID, clashes, in.StartDate, in.EndDate) {
				return ErrRoomUnavailable
			}
		}

		if err := tx.Create(b).Error; err != nil {
			return err
		}
		return upsertCustomer(tx, b, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Uint("booking_id", b.ID),
		zap.String("type", string(b.Type)),
		zap.Float64("total", b.TotalAmount),
		zap.String("payment_status", string(b.PaymentStatus)),
	)
	return b, nil
}

func receiptPrefix(t models.BookingType) string {
	return string(t) + "-receipts"
}

func upsertCustomer(tx *gorm.DB, b *models.Booking, now time.Time) error {
	unit := models.UnitHotel
	if b.Type == models.BookingGarden {
		unit = models.UnitGarden
	}

	var cust models.Customer
	err := tx.Where("mobile = ?", b.CustomerMobile).First(&cust).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		name := b.CustomerName
		if name == "" {
			name = "Guest"
		}
		return tx.Create(&models.Customer{
			Mobile:            b.CustomerMobile,
			Name:              name,
			VisitCount:        1,
			TotalSpent:        b.TotalAmount,
			PreferredBusiness: unit,
			LastVisit:         &now,
		}).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"visit_count": gorm.Expr("visit_count + ?", 1),
		"total_spent": gorm.Expr("total_spent + ?", b.TotalAmount),
		"last_visit":  now,
	}
	if b.CustomerName != "" {
		updates["name"] = b.CustomerName
	}
	return tx.Model(&cust).Updates(updates).Error
}

// AddPayment appends a payment and recomputes the summary.
func (s *Service) AddPayment(ctx context.Context, id uint, in PaymentInput) (*models.Booking, error) {
	if in.Method == "" {
		in.Method = models.MethodCash
	}
	if in.Type == "" {
		in.Type = models.PaymentPart
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if !in.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, in.Method)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayment, in.Type)
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == models.BookingCancelled {
		return nil, ErrBookingNotPayable
	}
	if err := checkRefund(b, in); err != nil {
		return nil, err
	}

	now := s.now()
	receipt, err := s.seq.Next(ctx, sequence.DayKey(receiptPrefix(b.Type), now))
	if err != nil {
		return nil, fmt.Errorf("receipt number: %w", err)
	}

	amount := in.Amount
	if in.Type == models.PaymentRefund {
		amount = -amount
	}
	payment := models.Payment{
		ID:            uuid.NewString(),
		Amount:        amount,
		Type:          in.Type,
		Method:        in.Method,
		Date:          now,
		ReceiptNumber: receipt,
		Notes:         in.Notes,
	}

	var wasCompleted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		// Payments may have landed since the first read.
		if err := checkRefund(b, in); err != nil {
			return err
		}
		wasCompleted = b.PaymentStatus == models.PaymentCompleted
		b.Payments = append(b.Payments, payment)
		Apply(b)
		return tx.Model(b).Select("payments", "paid_amount", "remaining_balance", "payment_status").Updates(b).Error
	})
	if err != nil {
		return nil, err
	}

	if !wasCompleted && b.PaymentStatus == models.PaymentCompleted {
		events.Emit(ctx, s.events, s.log, events.BookingPaid, events.BookingPaidEvent{
			BookingID:     b.ID,
			Amount:        b.PaidAmount,
			ReceiptNumber: receipt,
			PaidAt:        now.Format(time.RFC3339),
		})
	}
	return b, nil
}

// checkRefund keeps the paid amount from going negative.
func checkRefund(b *models.Booking, in PaymentInput) error {
	if in.Type != models.PaymentRefund {
		return nil
	}
	if pricing.Sub(b.PaidAmount, in.Amount) < 0 {
		return fmt.Errorf("%w: refund %.2f exceeds the paid amount %.2f", ErrInvalidPayment, in.Amount, b.PaidAmount)
	}
	return nil
}

var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingConfirmed: {models.BookingCheckedIn, models.BookingCancelled},
	models.BookingCheckedIn: {models.BookingCheckedOut},
}

func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves a booking through its lifecycle and keeps the room
// status in step: check-in occupies the room, check-out sends it to
// cleaning.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if !CanTransition(b.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, status)
		}

		now := s.now()
		updates := map[string]interface{}{"status": status}
		var roomStatus models.RoomStatus
		switch status {
		case models.BookingCheckedIn:
			updates["check_in_at"] = now
			b.CheckInAt = &now
			roomStatus = models.RoomOccupied
		case models.BookingCheckedOut:
			updates["check_out_at"] = now
			b.CheckOutAt = &now
			roomStatus = models.RoomCleaning
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return err
		}
		b.Status = status

		if b.RoomID != nil && roomStatus != "" {
			return tx.Model(&models.Room{}).Where("id = ?", *b.RoomID).Update("status", roomStatus).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// List returns bookings by start date, newest first. An empty type lists
// both hotel and garden bookings.
func (s *Service) List(ctx context.Context, typ models.BookingType) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).Order("start_date desc, id desc")
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var out []models.Booking
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveForRoom returns the blocking booking currently attached to a room,
// or nil.
func (s *Service) ActiveForRoom(ctx context.Context, roomID uint) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND status IN ?", roomID, blockingStatuses).
		Order("start_date asc").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Booking{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	s.log.Info("booking deleted", zap.Uint("booking_id", id))
	return nil
}

// Reconcile recomputes the stored summary from itemized payments and
// persists it when it drifted. It never invents payments.
func (s *Service) Reconcile(ctx context.Context, id uint) (*models.Booking, bool, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	sum := Reconcile(b.TotalAmount, b.Payments)
	if !NeedsUpdate(b, sum) {
		return b, false, nil
	}

	before := b.PaidAmount
	b.PaidAmount, b.RemainingBalance, b.PaymentStatus = sum.PaidAmount, sum.RemainingBalance, sum.PaymentStatus
	if err := s.db.WithContext(ctx).Model(b).
		Select("paid_amount", "remaining_balance", "payment_status").
		Updates(b).Error; err != nil {
		return nil, false, err
	}
	s.log.Info("booking reconciled",
		zap.Uint("booking_id", b.ID),
		zap.Float64("stored_paid", before),
		zap.Float64("calculated_paid", sum.PaidAmount),
	)
	return b, true, nil
}
