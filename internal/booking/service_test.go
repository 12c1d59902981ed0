package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"deora-backend/internal/events"
	"deora-backend/internal/models"
	"deora-backend/internal/sequence"
	"deora-backend/internal/testutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *testutil.RecordingPublisher) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &testutil.RecordingPublisher{}
	svc := NewService(db, sequence.NewDBSequencer(db), pub, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC) }
	return svc, db, pub
}

func createRoom(t *testing.T, db *gorm.DB, number string) *models.Room {
	t.Helper()
	r := &models.Room{Number: number, Type: "deluxe", Capacity: 2, Price: 2500, Status: models.RoomAvailable}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}
	return r
}

func hotelInput(roomID uint, start, end string) CreateInput {
	return CreateInput{
		Type:           models.BookingHotel,
		CustomerMobile: "9876543210",
		CustomerName:   "Asha",
		RoomID:         &roomID,
		StartDate:      day(start),
		EndDate:        day(end),
		TotalAmount:    980,
	}
}

func TestService_CreatePricesAndRecordsAdvance(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")

	in := hotelInput(room.ID, "2025-01-10", "2025-01-12")
	in.DiscountPercent = 10
	in.GSTEnabled = true
	in.GSTPercentage = 5
	in.AdvancePayment = 500
	in.AdvanceMethod = models.MethodUPI

	b, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if b.TotalAmount != 926.1 || b.DiscountAmount != 98 || b.GSTAmount != 44.1 {
		t.Errorf("pricing = total %v discount %v gst %v", b.TotalAmount, b.DiscountAmount, b.GSTAmount)
	}
	if len(b.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(b.Payments))
	}
	p := b.Payments[0]
	if p.Type != models.PaymentAdvance || p.Amount != 500 || p.Method != models.MethodUPI || p.ReceiptNumber != 1 {
		t.Errorf("advance payment = %+v", p)
	}
	if b.PaidAmount != 500 || b.PaymentStatus != models.PaymentPartial {
		t.Errorf("summary = paid %v status %s", b.PaidAmount, b.PaymentStatus)
	}

	var stored models.Booking
	if err := db.First(&stored, b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(stored.Payments) != 1 || stored.Payments[0].ID != p.ID {
		t.Errorf("payments were not persisted: %+v", stored.Payments)
	}

	var cust models.Customer
	if err := db.Where("mobile = ?", "9876543210").First(&cust).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	if cust.VisitCount != 1 || cust.TotalSpent != 926.1 || cust.PreferredBusiness != models.UnitHotel {
		t.Errorf("customer = %+v", cust)
	}
}

func TestService_CreateClampsAdvance(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")

	in := hotelInput(room.ID, "2025-01-10", "2025-01-12")
	in.AdvancePayment = 5000
	b, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.PaidAmount != 980 || b.RemainingBalance != 0 || b.PaymentStatus != models.PaymentCompleted {
		t.Errorf("summary = %+v", b)
	}

	in = hotelInput(room.ID, "2025-02-10", "2025-02-12")
	in.AdvancePayment = -50
	b, err = svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(b.Payments) != 0 || b.PaymentStatus != models.PaymentPending {
		t.Errorf("negative advance should be ignored: %+v", b)
	}
}

func TestService_CreateRejectsOverlap(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")
	ctx := context.Background()

	if _, err := svc.Create(ctx, hotelInput(room.ID, "2025-01-10", "2025-01-12")); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := svc.Create(ctx, hotelInput(room.ID, "2025-01-12", "2025-01-14"))
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("boundary-touch booking: err = %v, want ErrRoomUnavailable", err)
	}

	if _, err := svc.Create(ctx, hotelInput(room.ID, "2025-01-13", "2025-01-14")); err != nil {
		t.Fatalf("non-overlapping booking: %v", err)
	}

	var cust models.Customer
	db.Where("mobile = ?", "9876543210").First(&cust)
	if cust.VisitCount != 2 {
		t.Errorf("visit count = %d, want 2", cust.VisitCount)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")
	ctx := context.Background()

	bad := hotelInput(room.ID, "2025-01-10", "2025-01-12")
	bad.CustomerMobile = "1234567890"
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrInvalidMobile) {
		t.Errorf("mobile: err = %v", err)
	}

	bad = hotelInput(room.ID, "2025-01-12", "2025-01-10")
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrInvalidDates) {
		t.Errorf("dates: err = %v", err)
	}

	bad = hotelInput(999, "2025-01-10", "2025-01-12")
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("room: err = %v", err)
	}

	bad = hotelInput(room.ID, "2025-01-10", "2025-01-12")
	bad.Type = "spa"
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrInvalidType) {
		t.Errorf("type: err = %v", err)
	}
}

func TestService_AvailableRooms(t *testing.T) {
	svc, db, _ := newTestService(t)
	r1 := createRoom(t, db, "101")
	createRoom(t, db, "102")
	r3 := createRoom(t, db, "103")
	db.Model(r3).Update("status", models.RoomMaintenance)
	ctx := context.Background()

	if _, err := svc.Create(ctx, hotelInput(r1.ID, "2025-01-10", "2025-01-12")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rooms := svc.AvailableRooms(ctx, day("2025-01-11"), day("2025-01-13"))
	if len(rooms) != 1 || rooms[0].Number != "102" {
		t.Fatalf("AvailableRooms = %+v, want only 102", rooms)
	}

	ok, err := svc.CheckAvailability(ctx, day("2025-01-12"), day("2025-01-14"), &r1.ID)
	if err != nil || ok {
		t.Errorf("CheckAvailability = %v, %v; want false", ok, err)
	}
}

func TestService_AvailableRoomsQueryFailureIsEmpty(t *testing.T) {
	svc, db, _ := newTestService(t)
	sqlDB, _ := db.DB()
	sqlDB.Close()

	rooms := svc.AvailableRooms(context.Background(), day("2025-01-10"), day("2025-01-12"))
	if rooms == nil || len(rooms) != 0 {
		t.Fatalf("expected an empty, non-nil list, got %#v", rooms)
	}
}

func TestService_GardenAvailability(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := CreateInput{
		Type:           models.BookingGarden,
		CustomerMobile: "9123456780",
		StartDate:      day("2025-03-01"),
		EndDate:        day("2025-03-01"),
		TotalAmount:    50000,
		EventType:      "wedding",
	}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := svc.CheckAvailability(ctx, day("2025-03-01"), day("2025-03-02"), nil)
	if err != nil || ok {
		t.Errorf("venue should be taken: %v, %v", ok, err)
	}
	ok, _ = svc.CheckAvailability(ctx, day("2025-03-02"), day("2025-03-02"), nil)
	if !ok {
		t.Error("venue should be free the next day")
	}
}

func TestService_AddPayment(t *testing.T) {
	svc, db, pub := newTestService(t)
	room := createRoom(t, db, "101")
	ctx := context.Background()

	in := hotelInput(room.ID, "2025-01-10", "2025-01-12")
	in.AdvancePayment = 300
	b, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	b, err = svc.AddPayment(ctx, b.ID, PaymentInput{Amount: 200, Method: models.MethodCard})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if b.PaidAmount != 500 || b.RemainingBalance != 480 || b.PaymentStatus != models.PaymentPartial {
		t.Errorf("after partial: %+v", b)
	}
	if pub.Count(events.BookingPaid) != 0 {
		t.Error("no paid event expected yet")
	}

	b, err = svc.AddPayment(ctx, b.ID, PaymentInput{Amount: 480, Type: models.PaymentFinal})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if b.PaymentStatus != models.PaymentCompleted || len(b.Payments) != 3 {
		t.Errorf("after final: %+v", b)
	}
	if b.Payments[2].ReceiptNumber != 3 {
		t.Errorf("receipt number = %d, want 3", b.Payments[2].ReceiptNumber)
	}
	if pub.Count(events.BookingPaid) != 1 {
		t.Errorf("paid events = %d, want 1", pub.Count(events.BookingPaid))
	}

	if _, err := svc.AddPayment(ctx, b.ID, PaymentInput{Amount: 0}); !errors.Is(err, ErrInvalidPayment) {
		t.Errorf("zero amount: err = %v", err)
	}
	if _, err := svc.AddPayment(ctx, b.ID, PaymentInput{Amount: 10, Method: "cheque"}); !errors.Is(err, ErrInvalidPayment) {
		t.Errorf("bad method: err = %v", err)
	}
	if _, err := svc.AddPayment(ctx, 999, PaymentInput{Amount: 10}); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("missing booking: err = %v", err)
	}
}

func TestService_RefundCappedAtPaidAmount(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")
	ctx := context.Background()

	in := hotelInput(room.ID, "2025-01-10", "2025-01-12")
	in.AdvancePayment = 200
	b, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.AddPayment(ctx, b.ID, PaymentInput{Amount: 500, Type: models.PaymentRefund}); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("oversized refund: err = %v", err)
	}
	stored, err := svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Payments) != 1 || stored.PaidAmount != 200 {
		t.Errorf("rejected refund was stored: %+v", stored)
	}

	b, err = svc.AddPayment(ctx, b.ID, PaymentInput{Amount: 200, Type: models.PaymentRefund})
	if err != nil {
		t.Fatalf("full refund: %v", err)
	}
	if b.PaidAmount != 0 || b.RemainingBalance != b.TotalAmount || b.PaymentStatus != models.PaymentPending {
		t.Errorf("after refund: paid %v remaining %v status %s", b.PaidAmount, b.RemainingBalance, b.PaymentStatus)
	}
	if got := b.Payments[len(b.Payments)-1]; got.Amount != -200 || got.Type != models.PaymentRefund {
		t.Errorf("refund payment = %+v", got)
	}
}

func TestService_UpdateRoomRenumber(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	createRoom(t, db, "101")
	r := createRoom(t, db, "102")

	if _, err := svc.UpdateRoom(ctx, r.ID, RoomInput{Number: "101"}); !errors.Is(err, ErrDuplicateRoom) {
		t.Errorf("duplicate number: err = %v", err)
	}

	// Fail every COUNT query so the duplicate check cannot pass silently.
	countErr := errors.New("count unavailable")
	if err := db.Callback().Query().Before("gorm:query").Register("test:fail_count", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*int64); ok {
			tx.AddError(countErr)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	if _, err := svc.UpdateRoom(ctx, r.ID, RoomInput{Number: "201"}); !errors.Is(err, countErr) {
		t.Errorf("count failure: err = %v", err)
	}
	db.Callback().Query().Remove("test:fail_count")

	got, err := svc.UpdateRoom(ctx, r.ID, RoomInput{Number: "201"})
	if err != nil {
		t.Fatalf("UpdateRoom: %v", err)
	}
	if got.Number != "201" {
		t.Errorf("number = %q", got.Number)
	}
}

func TestService_StatusTransitionsUpdateRoom(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")
	ctx := context.Background()

	b, err := svc.Create(ctx, hotelInput(room.ID, "2025-01-10", "2025-01-12"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, b.ID, models.BookingCheckedOut); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirmed -> checked-out: err = %v", err)
	}

	b, err = svc.UpdateStatus(ctx, b.ID, models.BookingCheckedIn)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if b.CheckInAt == nil {
		t.Error("check-in time not set")
	}
	var r models.Room
	db.First(&r, room.ID)
	if r.Status != models.RoomOccupied {
		t.Errorf("room status = %s, want occupied", r.Status)
	}

	active, err := svc.ActiveForRoom(ctx, room.ID)
	if err != nil || active == nil || active.ID != b.ID {
		t.Fatalf("ActiveForRoom = %v, %v", active, err)
	}

	if _, err := svc.UpdateStatus(ctx, b.ID, models.BookingCheckedOut); err != nil {
		t.Fatalf("check out: %v", err)
	}
	db.First(&r, room.ID)
	if r.Status != models.RoomCleaning {
		t.Errorf("room status = %s, want cleaning", r.Status)
	}

	active, _ = svc.ActiveForRoom(ctx, room.ID)
	if active != nil {
		t.Errorf("checked-out booking is not active: %+v", active)
	}

	// The room is free again for the same dates.
	if _, err := svc.Create(ctx, hotelInput(room.ID, "2025-01-10", "2025-01-12")); err != nil {
		t.Errorf("rebooking after checkout: %v", err)
	}
}

func TestService_Reconcile(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	b := &models.Booking{
		Type:           models.BookingHotel,
		CustomerMobile: "9876543210",
		StartDate:      day("2025-01-10"),
		EndDate:        day("2025-01-12"),
		TotalAmount:    1000,
		Payments:       payments(400, 600),
		PaidAmount:     400,
		PaymentStatus:  models.PaymentPartial,
		Status:         models.BookingConfirmed,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, changed, err := svc.Reconcile(ctx, b.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !changed || got.PaidAmount != 1000 || got.PaymentStatus != models.PaymentCompleted {
		t.Errorf("Reconcile = %+v, changed %v", got, changed)
	}

	_, changed, err = svc.Reconcile(ctx, b.ID)
	if err != nil || changed {
		t.Errorf("second reconcile should be a no-op: %v, %v", changed, err)
	}
}

func TestService_DeleteRoomInUse(t *testing.T) {
	svc, db, _ := newTestService(t)
	room := createRoom(t, db, "101")
	ctx := context.Background()

	b, err := svc.Create(ctx, hotelInput(room.ID, "2025-01-10", "2025-01-12"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.DeleteRoom(ctx, room.ID); !errors.Is(err, ErrRoomInUse) {
		t.Fatalf("DeleteRoom: err = %v, want ErrRoomInUse", err)
	}
	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete booking: %v", err)
	}
	if err := svc.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if err := svc.Delete(ctx, b.ID); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestBackfill(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	legacy := &models.Booking{
		Type: models.BookingHotel, CustomerMobile: "9876543210",
		StartDate: day("2024-12-01"), EndDate: day("2024-12-02"),
		TotalAmount: 1000, AdvancePayment: 400, PaymentStatus: models.PaymentPending,
		Status: models.BookingCheckedOut,
	}
	drifted := &models.Booking{
		Type: models.BookingHotel, CustomerMobile: "9876543211",
		StartDate: day("2024-12-03"), EndDate: day("2024-12-04"),
		TotalAmount: 500, Payments: payments(500), PaidAmount: 200, PaymentStatus: models.PaymentPartial,
		Status: models.BookingCheckedOut,
	}
	clean := &models.Booking{
		Type: models.BookingHotel, CustomerMobile: "9876543212",
		StartDate: day("2024-12-05"), EndDate: day("2024-12-06"),
		TotalAmount: 500, Payments: payments(500), PaidAmount: 500.05, PaymentStatus: models.PaymentCompleted,
		Status: models.BookingCheckedOut,
	}
	for _, b := range []*models.Booking{legacy, drifted, clean} {
		if err := db.Create(b).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	report, err := Backfill(ctx, db, true, zap.NewNop())
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if report.Scanned != 3 || len(report.Changes) != 2 {
		t.Fatalf("dry run report = %+v", report)
	}
	reload := func(id uint) models.Booking {
		t.Helper()
		var b models.Booking
		if err := db.First(&b, id).Error; err != nil {
			t.Fatalf("reload booking %d: %v", id, err)
		}
		return b
	}
	if reloaded := reload(legacy.ID); len(reloaded.Payments) != 0 {
		t.Fatal("dry run must not write")
	}

	if _, err := Backfill(ctx, db, false, zap.NewNop()); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	reloaded := reload(legacy.ID)
	if len(reloaded.Payments) != 1 || reloaded.Payments[0].ID != "advance_1" ||
		reloaded.PaidAmount != 400 || reloaded.PaymentStatus != models.PaymentPartial {
		t.Errorf("legacy booking = %+v", reloaded)
	}
	reloaded = reload(drifted.ID)
	if reloaded.ID != drifted.ID || reloaded.PaidAmount != 500 || reloaded.PaymentStatus != models.PaymentCompleted {
		t.Errorf("drifted booking = %+v", reloaded)
	}

	report, _ = Backfill(ctx, db, false, zap.NewNop())
	if len(report.Changes) != 0 {
		t.Errorf("backfill should be idempotent, got %+v", report.Changes)
	}
}
