// Package settlement computes the monthly revenue split between the owner
// and the manager of each business unit.
package settlement

import (
	"errors"
	"sort"
	"time"

	"deora-backend/internal/models"

	"github.com/shopspring/decimal"
)

const monthLayout = "2006-01"

var (
	ErrInvalidMonth      = errors.New("month must be YYYY-MM")
	ErrInvalidUnit       = errors.New("settlements are generated per operational business unit")
	ErrSettlementMissing = errors.New("settlement not found")
)

// ParseMonth returns the half-open window [start, end) of a YYYY-MM month
// in UTC.
func ParseMonth(month string) (time.Time, time.Time, error) {
	start, err := time.Parse(monthLayout, month)
	if err != nil || start.Format(monthLayout) != month {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	return start, start.AddDate(0, 1, 0), nil
}

// Split returns owner = total*pct/100 and manager = total - owner.
func Split(total, ownerPercentage float64) (owner, manager float64) {
	t := decimal.NewFromFloat(total)
	o := t.Mul(decimal.NewFromFloat(ownerPercentage)).Div(decimal.NewFromInt(100))
	return o.InexactFloat64(), t.Sub(o).InexactFloat64()
}

type Totals struct {
	Revenue   float64            `json:"revenue"`
	BillCount int                `json:"bill_count"`
	ByMethod  map[string]float64 `json:"by_method"`
}

// Aggregate sums the grand totals of paid bills of unit created in
// [start, end).
func Aggregate(bills []models.Bill, unit models.BusinessUnit, start, end time.Time) Totals {
	total := decimal.Zero
	methods := make(map[string]decimal.Decimal)
	count := 0

	for _, b := range bills {
		if b.BusinessUnit != unit || b.PaymentStatus != models.BillPaid {
			continue
		}
		if b.CreatedAt.Before(start) || !b.CreatedAt.Before(end) {
			continue
		}
		amount := decimal.NewFromFloat(b.GrandTotal)
		total = total.Add(amount)
		m := string(b.PaymentMethod)
		if m == "" {
			m = string(models.MethodCash)
		}
		methods[m] = methods[m].Add(amount)
		count++
	}

	out := Totals{Revenue: total.InexactFloat64(), BillCount: count, ByMethod: make(map[string]float64, len(methods))}
	for m, v := range methods {
		out.ByMethod[m] = v.InexactFloat64()
	}
	return out
}

type UnitDay struct {
	BusinessUnit  models.BusinessUnit `json:"business_unit"`
	Total         float64             `json:"total"`
	Paid          float64             `json:"paid"`
	Pending       float64             `json:"pending"`
	BillCount     int                 `json:"bill_count"`
	PaidBillCount int                 `json:"paid_bill_count"`
}

type DailyReport struct {
	Date         string    `json:"date"`
	Units        []UnitDay `json:"units"`
	GrandTotal   float64   `json:"grand_total"`
	GrandPaid    float64   `json:"grand_paid"`
	GrandPending float64   `json:"grand_pending"`
}

// GroupDaily totals bills per unit, split into paid and pending.
func GroupDaily(bills []models.Bill) []UnitDay {
	type acc struct {
		total, paid, pending decimal.Decimal
		count, paidCount     int
	}
	byUnit := make(map[models.BusinessUnit]*acc)
	for _, b := range bills {
		a, ok := byUnit[b.BusinessUnit]
		if !ok {
			a = &acc{}
			byUnit[b.BusinessUnit] = a
		}
		amount := decimal.NewFromFloat(b.GrandTotal)
		a.total = a.total.Add(amount)
		a.count++
		if b.PaymentStatus == models.BillPaid {
			a.paid = a.paid.Add(amount)
			a.paidCount++
		} else {
			a.pending = a.pending.Add(amount)
		}
	}

	out := make([]UnitDay, 0, len(byUnit))
	for unit, a := range byUnit {
		out = append(out, UnitDay{
			BusinessUnit:  unit,
			Total:         a.total.InexactFloat64(),
			Paid:          a.paid.InexactFloat64(),
			Pending:       a.pending.InexactFloat64(),
			BillCount:     a.count,
			PaidBillCount: a.paidCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessUnit < out[j].BusinessUnit })
	return out
}

func buildDailyReport(day time.Time, bills []models.Bill) DailyReport {
	units := GroupDaily(bills)
	total, paid, pending := decimal.Zero, decimal.Zero, decimal.Zero
	for _, u := range units {
		total = total.Add(decimal.NewFromFloat(u.Total))
		paid = paid.Add(decimal.NewFromFloat(u.Paid))
		pending = pending.Add(decimal.NewFromFloat(u.Pending))
	}
	return DailyReport{
		Date:         day.Format("2006-01-02"),
		Units:        units,
		GrandTotal:   total.InexactFloat64(),
		GrandPaid:    paid.InexactFloat64(),
		GrandPending: pending.InexactFloat64(),
	}
}
