package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deora-backend/internal/models"
	"deora-backend/internal/pricing"
	"deora-backend/internal/sequence"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrBillNotFound  = errors.New("bill not found")
	ErrInvalidBill   = errors.New("invalid bill")
	ErrAlreadyPaid   = errors.New("bill is already paid")
	ErrInvalidPeriod = errors.New("from must not be after to")
)

type Service struct {
	db  *gorm.DB
	seq sequence.Sequencer
	log *zap.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, seq sequence.Sequencer, log *zap.Logger) *Service {
	return &Service{db: db, seq: seq, log: log, now: time.Now}
}

type CreateInput struct {
	OrderRef        string               `json:"order_ref"`
	BusinessUnit    models.BusinessUnit  `json:"business_unit"`
	CustomerName    string               `json:"customer_name"`
	CustomerMobile  string               `json:"customer_mobile"`
	Items           []models.BillItem    `json:"items"`
	Subtotal        float64              `json:"subtotal"`
	DiscountPercent float64              `json:"discount_percent"`
	GSTPercent      *float64             `json:"gst_percent"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	PaymentStatus   models.BillStatus    `json:"payment_status"`
	Source          string               `json:"source"`
}

// Subtotal sums quantity*price over items.
func Subtotal(items []models.BillItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.Price)))
	}
	return total.InexactFloat64()
}

// gstRateFor returns the unit's default GST rate, or 0 when GST is off.
func (s *Service) gstRateFor(ctx context.Context, unit models.BusinessUnit) float64 {
	var setting models.UnitSetting
	if err := s.db.WithContext(ctx).First(&setting, "unit = ?", unit).Error; err != nil {
		s.log.Warn("unit setting missing, billing without GST", zap.String("unit", string(unit)), zap.Error(err))
		return 0
	}
	if !setting.GSTEnabled {
		return 0
	}
	return setting.GSTRate
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Bill, error) {
	if !in.BusinessUnit.Operational() {
		return nil, fmt.Errorf("%w: unknown business unit %q", ErrInvalidBill, in.BusinessUnit)
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" || it.Quantity <= 0 || it.Price < 0 {
			return nil, fmt.Errorf("%w: item needs a name, a positive quantity and a price", ErrInvalidBill)
		}
	}

	subtotal := in.Subtotal
	if len(in.Items) > 0 {
		subtotal = Subtotal(in.Items)
	}

	rate := 0.0
	if in.GSTPercent != nil {
		rate = *in.GSTPercent
	} else {
		rate = s.gstRateFor(ctx, in.BusinessUnit)
	}
	if err := pricing.Validate(subtotal, in.DiscountPercent, rate); err != nil {
		return nil, err
	}
	if subtotal <= 0 {
		return nil, fmt.Errorf("%w: subtotal must be positive", ErrInvalidBill)
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = models.MethodCash
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidBill, in.PaymentMethod)
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = models.BillPaid
	}
	if in.PaymentStatus != models.BillPaid && in.PaymentStatus != models.BillPending {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidBill, in.PaymentStatus)
	}
	if in.Source == "" {
		in.Source = "dine-in"
	}

	q := pricing.Calculate(subtotal, in.DiscountPercent, rate)

	now := s.now()
	number, err := s.nextBillNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("bill number: %w", err)
	}

	bill := &models.Bill{
		BillNumber:      number,
		OrderRef:        in.OrderRef,
		BusinessUnit:    in.BusinessUnit,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerMobile:  strings.TrimSpace(in.CustomerMobile),
		Items:           in.Items,
		Subtotal:        subtotal,
		DiscountPercent: in.DiscountPercent,
		DiscountAmount:  q.DiscountAmount,
		GSTPercent:      rate,
		GSTAmount:       q.GSTAmount,
		CGST:            q.CGST,
		SGST:            q.SGST,
		GrandTotal:      q.Final,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   in.PaymentStatus,
		Source:          in.Source,
		CreatedAt:       now,
	}
	if bill.PaymentStatus == models.BillPaid {
		bill.AmountPaid = bill.GrandTotal
	}

	if err := s.db.WithContext(ctx).Create(bill).Error; err != nil {
		return nil, err
	}
	s.log.Info("bill created",
		zap.String("bill_number", bill.BillNumber),
		zap.String("unit", string(bill.BusinessUnit)),
		zap.Float64("grand_total", bill.GrandTotal),
	)
	return bill, nil
}

// nextBillNumber draws BILL-YYYYMMDD-NNNN from the day's counter. When the
// counter hands out a number that is already stored (a Redis flush or an
// expired key), the counter is raised past the day's highest bill and drawn
// again.
func (s *Service) nextBillNumber(ctx context.Context, now time.Time) (string, error) {
	key := sequence.DayKey("bills", now)
	prefix := "BILL-" + now.Format("20060102") + "-"

	for attempt := 0; attempt < 2; attempt++ {
		n, err := s.seq.Next(ctx, key)
		if err != nil {
			return "", err
		}
		number := fmt.Sprintf("%s%04d", prefix, n)

		var taken int64
		if err := s.db.WithContext(ctx).Model(&models.Bill{}).
			Where("bill_number = ?", number).Count(&taken).Error; err != nil {
			return "", err
		}
		if taken == 0 {
			return number, nil
		}

		highest, err := s.highestBillSeq(ctx, prefix)
		if err != nil {
			return "", err
		}
		s.log.Warn("bill counter behind stored bills, reseeding",
			zap.String("key", key),
			zap.Int64("issued", n),
			zap.Int64("highest", highest),
		)
		if err := s.seq.Floor(ctx, key, highest); err != nil {
			return "", err
		}
	}
	return "", errors.New("counter still collides after reseeding")
}

func (s *Service) highestBillSeq(ctx context.Context, prefix string) (int64, error) {
	var numbers []string
	if err := s.db.WithContext(ctx).Model(&models.Bill{}).
		Where("bill_number LIKE ?", prefix+"%").
		Pluck("bill_number", &numbers).Error; err != nil {
		return 0, err
	}
	var highest int64
	for _, num := range numbers {
		n, err := strconv.ParseInt(strings.TrimPrefix(num, prefix), 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// ProcessPayment settles a pending bill.
func (s *Service) ProcessPayment(ctx context.Context, id uint, method models.PaymentMethod, amountPaid float64) (*models.Bill, error) {
	if method == "" {
		method = models.MethodCash
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidBill, method)
	}

	bill, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.PaymentStatus == models.BillPaid {
		return nil, ErrAlreadyPaid
	}
	if amountPaid <= 0 {
		amountPaid = bill.GrandTotal
	}
	if amountPaid < bill.GrandTotal {
		return nil, fmt.Errorf("%w: amount paid %.2f is below the grand total %.2f", ErrInvalidBill, amountPaid, bill.GrandTotal)
	}

	bill.PaymentMethod = method
	bill.PaymentStatus = models.BillPaid
	bill.AmountPaid = amountPaid
	if err := s.db.WithContext(ctx).Model(bill).
		Select("payment_method", "payment_status", "amount_paid").
		Updates(bill).Error; err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).First(&bill, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// List returns bills newest first. UnitAll or "" lists every unit.
func (s *Service) List(ctx context.Context, unit models.BusinessUnit, limit int) ([]models.Bill, error) {
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if unit != "" && unit != models.UnitAll {
		q = q.Where("business_unit = ?", unit)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var bills []models.Bill
	if err := q.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Bill{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBillNotFound
	}
	s.log.Info("bill deleted", zap.Uint("bill_id", id))
	return nil
}

// DailyRevenue sums paid bills of unit created on day.
func (s *Service) DailyRevenue(ctx context.Context, unit models.BusinessUnit, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	q := s.db.WithContext(ctx).Model(&models.Bill{}).
		Where("payment_status = ? AND created_at >= ? AND created_at < ?", models.BillPaid, start, end)
	if unit != "" && unit != models.UnitAll {
		q = q.Where("business_unit = ?", unit)
	}
	var totals []float64
	if err := q.Pluck("grand_total", &totals).Error; err != nil {
		return 0, err
	}
	return pricing.Sum(totals...), nil
}
