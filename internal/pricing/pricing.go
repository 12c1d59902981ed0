// Package pricing turns a base amount into the discounted, GST-inclusive
// total charged to a guest. Amounts are plain rupees; rounding to paise is
// left to presentation.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("invalid pricing input")

var hundred = decimal.NewFromInt(100)

type Breakdown struct {
	Base            float64 `json:"base"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	Discounted      float64 `json:"discounted"`
	GSTRate         float64 `json:"gst_rate"`
	GSTAmount       float64 `json:"gst_amount"`
	CGST            float64 `json:"cgst"`
	SGST            float64 `json:"sgst"`
	Final           float64 `json:"final"`
}

// Calculate applies the discount first and GST on the discounted amount.
// GST is split evenly between CGST and SGST.
func Calculate(base, discountPercent, gstRate float64) Breakdown {
	b := decimal.NewFromFloat(base)
	discount := b.Mul(decimal.NewFromFloat(discountPercent)).Div(hundred)
	discounted := b.Sub(discount)
	gst := discounted.Mul(decimal.NewFromFloat(gstRate)).Div(hundred)
	half := gst.Div(decimal.NewFromInt(2))

	return Breakdown{
		Base:            base,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount.InexactFloat64(),
		Discounted:      discounted.InexactFloat64(),
		GSTRate:         gstRate,
		GSTAmount:       gst.InexactFloat64(),
		CGST:            half.InexactFloat64(),
		SGST:            half.InexactFloat64(),
		Final:           discounted.Add(gst).InexactFloat64(),
	}
}

func Validate(base, discountPercent, gstRate float64) error {
	switch {
	case base < 0:
		return fmt.Errorf("%w: base amount must not be negative", ErrInvalidInput)
	case discountPercent < 0 || discountPercent > 100:
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidInput)
	case gstRate < 0 || gstRate > 100:
		return fmt.Errorf("%w: GST rate must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Sum adds amounts without accumulating binary floating point error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// Sub returns a-b computed in decimal.
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}
