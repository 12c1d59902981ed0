package booking

import (
	"context"

	"deora-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BackfillChange struct {
	BookingID     uint                 `json:"booking_id"`
	Synthesized   bool                 `json:"synthesized"`
	StoredPaid    float64              `json:"stored_paid"`
	CalculatedPay float64              `json:"calculated_paid"`
	Status        models.PaymentStatus `json:"status"`
}

type BackfillReport struct {
	Scanned int              `json:"scanned"`
	Changes []BackfillChange `json:"changes"`
}

// Backfill itemizes legacy advance payments of hotel bookings and fixes
// summaries that drifted from their payments. With dryRun nothing is
// written.
func Backfill(ctx context.Context, db *gorm.DB, dryRun bool, log *zap.Logger) (BackfillReport, error) {
	var report BackfillReport

	var bookings []models.Booking
	if err := db.WithContext(ctx).
		Where("type = ?", models.BookingHotel).
		Order("id").
		Find(&bookings).Error; err != nil {
		return report, err
	}
	report.Scanned = len(bookings)

	for i := range bookings {
		b := &bookings[i]
		stored := b.PaidAmount

		_, synthesized := BackfillAdvance(b)
		sum := Reconcile(b.TotalAmount, b.Payments)
		if !synthesized && !NeedsUpdate(b, sum) {
			continue
		}

		change := BackfillChange{
			BookingID:     b.ID,
			Synthesized:   synthesized,
			StoredPaid:    stored,
			CalculatedPay: sum.PaidAmount,
			Status:        sum.PaymentStatus,
		}
		report.Changes = append(report.Changes, change)

		log.Info("booking payment fix",
			zap.Uint("booking_id", b.ID),
			zap.Bool("synthesized", synthesized),
			zap.Float64("stored_paid", stored),
			zap.Float64("calculated_paid", sum.PaidAmount),
			zap.Bool("dry_run", dryRun),
		)
		if dryRun {
			continue
		}

		b.PaidAmount, b.RemainingBalance, b.PaymentStatus = sum.PaidAmount, sum.RemainingBalance, sum.PaymentStatus
		if err := db.WithContext(ctx).Model(b).
			Select("payments", "paid_amount", "remaining_balance", "payment_status").
			Updates(b).Error; err != nil {
			return report, err
		}
	}
	return report, nil
}
