package booking

import (
	"fmt"
	"math"

	"deora-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference between a stored and a recomputed
// amount that is still treated as equal.
const Tolerance = 0.1

type Summary struct {
	PaidAmount       float64              `json:"paid_amount"`
	RemainingBalance float64              `json:"remaining_balance"`
	PaymentStatus    models.PaymentStatus `json:"payment_status"`
}

// PaymentStatusFor derives the status from the total and what was paid.
func PaymentStatusFor(total, paid float64) models.PaymentStatus {
	remaining := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(paid))
	switch {
	case !remaining.IsPositive():
		return models.PaymentCompleted
	case paid > 0:
		return models.PaymentPartial
	default:
		return models.PaymentPending
	}
}

// Reconcile recomputes the payment summary from itemized payments only.
func Reconcile(total float64, payments []models.Payment) Summary {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(decimal.NewFromFloat(p.Amount))
	}
	remaining := decimal.NewFromFloat(total).Sub(paid)

	return Summary{
		PaidAmount:       paid.InexactFloat64(),
		RemainingBalance: remaining.InexactFloat64(),
		PaymentStatus:    PaymentStatusFor(total, paid.InexactFloat64()),
	}
}

// Apply writes the reconciled summary onto b.
func Apply(b *models.Booking) Summary {
	s := Reconcile(b.TotalAmount, b.Payments)
	b.PaidAmount = s.PaidAmount
	b.RemainingBalance = s.RemainingBalance
	b.PaymentStatus = s.PaymentStatus
	return s
}

func Drifted(stored, calculated float64) bool {
	return math.Abs(stored-calculated) > Tolerance
}

// NeedsUpdate reports whether the stored summary of b disagrees with s.
func NeedsUpdate(b *models.Booking, s Summary) bool {
	return Drifted(b.PaidAmount, s.PaidAmount) ||
		Drifted(b.RemainingBalance, s.RemainingBalance) ||
		b.PaymentStatus != s.PaymentStatus
}

// BackfillAdvance converts the legacy AdvancePayment field into an itemized
// advance payment. It only applies to rows that have no payments at all and
// must not run as part of regular reconciliation.
func BackfillAdvance(b *models.Booking) (models.Payment, bool) {
	if len(b.Payments) > 0 || b.AdvancePayment <= 0 {
		return models.Payment{}, false
	}
	p := models.Payment{
		ID:     fmt.Sprintf("advance_%d", b.ID),
		Amount: b.AdvancePayment,
		Type:   models.PaymentAdvance,
		Method: models.MethodCash,
		Date:   b.CreatedAt,
		Notes:  "backfilled from advance payment",
	}
	b.Payments = append(b.Payments, p)
	return p, true
}
