package settlement

import (
	"errors"
	"testing"
	"time"

	"deora-backend/internal/models"
)

func bill(unit models.BusinessUnit, total float64, status models.BillStatus, at time.Time) models.Bill {
	return models.Bill{BusinessUnit: unit, GrandTotal: total, PaymentStatus: status, PaymentMethod: models.MethodCash, CreatedAt: at}
}

func TestParseMonth(t *testing.T) {
	start, end, err := ParseMonth("2025-02")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if !start.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = %v - %v", start, end)
	}

	for _, bad := range []string{"", "2025", "2025-13", "2025-1", "25-01", "2025-01-01", "Jan 2025"} {
		if _, _, err := ParseMonth(bad); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("ParseMonth(%q): err = %v", bad, err)
		}
	}
}

func TestSplit(t *testing.T) {
	owner, manager := Split(600, 40)
	if owner != 240 || manager != 360 {
		t.Errorf("Split(600, 40) = %v, %v", owner, manager)
	}
	owner, manager = Split(1000.5, 33)
	if d := owner + manager - 1000.5; d > 1e-9 || d < -1e-9 {
		t.Errorf("shares %v + %v do not add up", owner, manager)
	}
	owner, manager = Split(500, 0)
	if owner != 0 || manager != 500 {
		t.Errorf("Split(500, 0) = %v, %v", owner, manager)
	}
}

func TestAggregate(t *testing.T) {
	start, end, _ := ParseMonth("2025-01")
	mid := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	bills := []models.Bill{
		bill(models.UnitCafe, 100, models.BillPaid, mid),
		bill(models.UnitCafe, 200, models.BillPaid, start),
		bill(models.UnitCafe, 300, models.BillPaid, end.Add(-time.Second)),
		bill(models.UnitCafe, 999, models.BillPending, mid),
		bill(models.UnitBar, 999, models.BillPaid, mid),
		bill(models.UnitCafe, 999, models.BillPaid, end),
		bill(models.UnitCafe, 999, models.BillPaid, start.Add(-time.Second)),
	}
	bills[1].PaymentMethod = models.MethodUPI

	got := Aggregate(bills, models.UnitCafe, start, end)
	if got.Revenue != 600 || got.BillCount != 3 {
		t.Errorf("Aggregate = %+v, want 600 over 3 bills", got)
	}
	if got.ByMethod["cash"] != 400 || got.ByMethod["upi"] != 200 {
		t.Errorf("by method = %v", got.ByMethod)
	}

	owner, manager := Split(got.Revenue, 40)
	if owner != 240 || manager != 360 {
		t.Errorf("shares = %v / %v, want 240 / 360", owner, manager)
	}
}

func TestGroupDaily(t *testing.T) {
	at := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	bills := []models.Bill{
		bill(models.UnitCafe, 100, models.BillPaid, at),
		bill(models.UnitCafe, 50, models.BillPending, at),
		bill(models.UnitBar, 300, models.BillPaid, at),
	}
	got := GroupDaily(bills)
	if len(got) != 2 {
		t.Fatalf("units = %d, want 2", len(got))
	}
	if got[0].BusinessUnit != models.UnitBar || got[1].BusinessUnit != models.UnitCafe {
		t.Errorf("units not sorted: %+v", got)
	}
	cafe := got[1]
	if cafe.Total != 150 || cafe.Paid != 100 || cafe.Pending != 50 || cafe.BillCount != 2 || cafe.PaidBillCount != 1 {
		t.Errorf("cafe = %+v", cafe)
	}

	report := buildDailyReport(at, bills)
	if report.Date != "2025-01-10" || report.GrandTotal != 450 || report.GrandPaid != 400 || report.GrandPending != 50 {
		t.Errorf("report = %+v", report)
	}
}
