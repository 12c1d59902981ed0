package settlement

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"deora-backend/internal/events"
	"deora-backend/internal/models"
	"deora-backend/internal/testutil"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *testutil.RecordingPublisher) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &testutil.RecordingPublisher{}
	svc := NewService(db, pub, zap.NewNop(), 40)
	svc.now = func() time.Time { return time.Date(2025, 1, 20, 18, 0, 0, 0, time.UTC) }
	return svc, db, pub
}

func seedBills(t *testing.T, db *gorm.DB, bills ...models.Bill) {
	t.Helper()
	var existing int64
	db.Model(&models.Bill{}).Count(&existing)
	for i := range bills {
		bills[i].BillNumber = fmt.Sprintf("BILL-TEST-%04d", int(existing)+i+1)
		if err := db.Create(&bills[i]).Error; err != nil {
			t.Fatalf("seed bill: %v", err)
		}
	}
}

func TestGenerate(t *testing.T) {
	svc, db, pub := newTestService(t)
	ctx := context.Background()
	jan := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	seedBills(t, db,
		bill(models.UnitCafe, 100, models.BillPaid, jan),
		bill(models.UnitCafe, 200, models.BillPaid, jan),
		bill(models.UnitCafe, 300, models.BillPaid, jan),
		bill(models.UnitCafe, 400, models.BillPending, jan),
		bill(models.UnitBar, 500, models.BillPaid, jan),
		bill(models.UnitCafe, 700, models.BillPaid, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
	)

	st, err := svc.Generate(ctx, models.UnitCafe, "2025-01")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if st.TotalRevenue != 600 || st.OwnerShare != 240 || st.ManagerShare != 360 || st.BillCount != 3 {
		t.Errorf("settlement = %+v", st)
	}
	if st.Status != models.SettlementPending || st.OwnerPercentage != 40 {
		t.Errorf("status/pct = %s/%v", st.Status, st.OwnerPercentage)
	}
	if pub.Count(events.SettlementGenerated) != 1 {
		t.Errorf("events = %d", pub.Count(events.SettlementGenerated))
	}

	// Mark paid, add a late bill and regenerate: same row, status kept.
	if _, err := svc.MarkPaid(ctx, st.ID); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	seedBills(t, db, models.Bill{BillNumber: "late", BusinessUnit: models.UnitCafe, GrandTotal: 400,
		PaymentStatus: models.BillPaid, CreatedAt: jan})

	again, err := svc.Generate(ctx, models.UnitCafe, "2025-01")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if again.ID != st.ID {
		t.Errorf("regenerate created a new row: %d != %d", again.ID, st.ID)
	}
	if again.TotalRevenue != 1000 || again.OwnerShare != 400 || again.ManagerShare != 600 {
		t.Errorf("regenerated = %+v", again)
	}
	if again.Status != models.SettlementCompleted {
		t.Errorf("status = %s, want completed", again.Status)
	}

	var count int64
	db.Model(&models.Settlement{}).Where("business_unit = ? AND month = ?", models.UnitCafe, "2025-01").Count(&count)
	if count != 1 {
		t.Errorf("settlement rows = %d, want 1", count)
	}
}

func TestGenerate_UsesUnitPercentage(t *testing.T) {
	svc, db, _ := newTestService(t)
	db.Model(&models.UnitSetting{}).Where("unit = ?", models.UnitBar).Update("owner_percentage", 55)
	seedBills(t, db, bill(models.UnitBar, 1000, models.BillPaid, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)))

	st, err := svc.Generate(context.Background(), models.UnitBar, "2025-01")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if st.OwnerPercentage != 55 || st.OwnerShare != 550 || st.ManagerShare != 450 {
		t.Errorf("settlement = %+v", st)
	}
}

func TestGenerate_RowAlreadyInsertedByAnotherWriter(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	seedBills(t, db, bill(models.UnitCafe, 600, models.BillPaid, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)))

	// A concurrent run inserted the row between our read of the bills and
	// our write; the upsert must converge on it instead of failing.
	first := models.Settlement{
		BusinessUnit: models.UnitCafe, Month: "2025-01",
		TotalRevenue: 1, BillCount: 1, OwnerPercentage: 40,
		Status: models.SettlementPending,
	}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("seed settlement: %v", err)
	}

	st, err := svc.Generate(ctx, models.UnitCafe, "2025-01")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if st.ID != first.ID || st.TotalRevenue != 600 || st.OwnerShare != 240 || st.ManagerShare != 360 {
		t.Errorf("settlement = %+v", st)
	}
	if st.Status != models.SettlementPending {
		t.Errorf("status = %s", st.Status)
	}

	var count int64
	db.Model(&models.Settlement{}).Count(&count)
	if count != 1 {
		t.Errorf("settlement rows = %d, want 1", count)
	}
}

func TestGenerate_MissingUnitSettingLogsFallback(t *testing.T) {
	_, db, _ := newTestService(t)
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(db, nil, zap.New(core), 35)

	if err := db.Delete(&models.UnitSetting{}, "unit = ?", models.UnitGarden).Error; err != nil {
		t.Fatalf("delete setting: %v", err)
	}
	seedBills(t, db, bill(models.UnitGarden, 1000, models.BillPaid, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)))

	st, err := svc.Generate(context.Background(), models.UnitGarden, "2025-01")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if st.OwnerPercentage != 35 || st.OwnerShare != 350 {
		t.Errorf("settlement = %+v", st)
	}
	if logs.FilterMessage("unit setting unavailable, using default owner percentage").Len() != 1 {
		t.Errorf("warnings = %v", logs.All())
	}
}

func TestGenerate_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, models.UnitCafe, "2025-13"); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("bad month: err = %v", err)
	}
	if _, err := svc.Generate(ctx, models.UnitAll, "2025-01"); !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("all: err = %v", err)
	}
	if _, err := svc.MarkPaid(ctx, 42); !errors.Is(err, ErrSettlementMissing) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestGenerateAllAndSummary(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	jan := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	seedBills(t, db,
		bill(models.UnitCafe, 100, models.BillPaid, jan),
		bill(models.UnitBar, 200, models.BillPaid, jan),
		bill(models.UnitHotel, 300, models.BillPaid, jan),
	)

	list, err := svc.GenerateAll(ctx, "2025-01")
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("settlements = %d, want 4", len(list))
	}

	sum, err := svc.CurrentMonthSummary(ctx)
	if err != nil {
		t.Fatalf("CurrentMonthSummary: %v", err)
	}
	if sum.Month != "2025-01" || sum.TotalRevenue != 600 || sum.OwnerShare != 240 || sum.ManagerShare != 360 {
		t.Errorf("summary = %+v", sum)
	}

	cafeOnly, err := svc.List(ctx, "2025-01", models.UnitCafe)
	if err != nil || len(cafeOnly) != 1 {
		t.Errorf("List cafe = %v, %v", cafeOnly, err)
	}
	if _, err := svc.List(ctx, "January", models.UnitAll); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("List bad month: err = %v", err)
	}
}

func TestDailyReport(t *testing.T) {
	svc, db, _ := newTestService(t)
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	seedBills(t, db,
		bill(models.UnitCafe, 100, models.BillPaid, day.Add(9*time.Hour)),
		bill(models.UnitCafe, 40, models.BillPending, day.Add(20*time.Hour)),
		bill(models.UnitGarden, 5000, models.BillPaid, day.Add(23*time.Hour)),
		bill(models.UnitCafe, 999, models.BillPaid, day.Add(24*time.Hour)),
	)

	report, err := svc.DailyReport(context.Background(), day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("DailyReport: %v", err)
	}
	if len(report.Units) != 2 || report.GrandTotal != 5140 || report.GrandPaid != 5100 || report.GrandPending != 40 {
		t.Errorf("report = %+v", report)
	}
}

func TestExport(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	seedBills(t, db, bill(models.UnitCafe, 600, models.BillPaid, time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)))
	if _, err := svc.Generate(ctx, models.UnitCafe, "2025-01"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, err := svc.Export(ctx, "2025-01")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	buf, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	read, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer read.Close()
	rows, err := read.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "2025-01" || rows[1][1] != "cafe" || rows[1][3] != "600" || rows[1][5] != "240" || rows[1][6] != "360" {
		t.Errorf("row = %v", rows[1])
	}
	if ExportFilename("2025-01") != "Settlements_2025-01.xlsx" {
		t.Errorf("filename = %s", ExportFilename("2025-01"))
	}
}
