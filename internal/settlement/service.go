package settlement

import (
	"context"
	"errors"
	"time"

	"deora-backend/internal/events"
	"deora-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db                     *gorm.DB
	events                 events.Publisher
	log                    *zap.Logger
	defaultOwnerPercentage float64
	now                    func() time.Time
}

func NewService(db *gorm.DB, pub events.Publisher, log *zap.Logger, defaultOwnerPercentage float64) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		db:                     db,
		events:                 pub,
		log:                    log,
		defaultOwnerPercentage: defaultOwnerPercentage,
		now:                    time.Now,
	}
}

func (s *Service) ownerPercentage(ctx context.Context, unit models.BusinessUnit) float64 {
	var setting models.UnitSetting
	if err := s.db.WithContext(ctx).First(&setting, "unit = ?", unit).Error; err != nil {
		s.log.Warn("unit setting unavailable, using default owner percentage",
			zap.String("unit", string(unit)),
			zap.Float64("owner_percentage", s.defaultOwnerPercentage),
			zap.Error(err),
		)
		return s.defaultOwnerPercentage
	}
	return setting.OwnerPercentage
}

// Generate computes the settlement of unit for month and stores it. Running
// it again for the same unit and month updates the figures in place and
// keeps the id and status.
func (s *Service) Generate(ctx context.Context, unit models.BusinessUnit, month string) (*models.Settlement, error) {
	if !unit.Operational() {
		return nil, ErrInvalidUnit
	}
	start, end, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}

	var bills []models.Bill
	if err := s.db.WithContext(ctx).
		Where("business_unit = ? AND payment_status = ?", unit, models.BillPaid).
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&bills).Error; err != nil {
		return nil, err
	}

	totals := Aggregate(bills, unit, start, end)
	pct := s.ownerPercentage(ctx, unit)
	owner, manager := Split(totals.Revenue, pct)

	byMethod := datatypes.JSONMap{}
	for m, v := range totals.ByMethod {
		byMethod[m] = v
	}

	// Upsert on (business_unit, month) so concurrent first runs for the same
	// month converge on one row. Status and settlement date are left alone.
	st := models.Settlement{
		BusinessUnit:    unit,
		Month:           month,
		TotalRevenue:    totals.Revenue,
		BillCount:       totals.BillCount,
		OwnerPercentage: pct,
		OwnerShare:      owner,
		ManagerShare:    manager,
		ByMethod:        byMethod,
		Status:          models.SettlementPending,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "business_unit"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_revenue", "bill_count", "owner_percentage",
				"owner_share", "manager_share", "by_method", "updated_at",
			}),
		}).Create(&st).Error; err != nil {
			return err
		}
		// Reload for the id and status of a row that already existed.
		st = models.Settlement{}
		return tx.Where("business_unit = ? AND month = ?", unit, month).First(&st).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("settlement generated",
		zap.String("unit", string(unit)),
		zap.String("month", month),
		zap.Float64("total", st.TotalRevenue),
		zap.Int("bills", st.BillCount),
	)
	events.Emit(ctx, s.events, s.log, events.SettlementGenerated, events.SettlementGeneratedEvent{
		SettlementID: st.ID,
		BusinessUnit: string(unit),
		Month:        month,
		Total:        st.TotalRevenue,
	})
	return &st, nil
}

// GenerateAll generates the month for every operational unit.
func (s *Service) GenerateAll(ctx context.Context, month string) ([]models.Settlement, error) {
	out := make([]models.Settlement, 0, len(models.OperationalUnits))
	for _, unit := range models.OperationalUnits {
		st, err := s.Generate(ctx, unit, month)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

func (s *Service) MarkPaid(ctx context.Context, id uint) (*models.Settlement, error) {
	var st models.Settlement
	if err := s.db.WithContext(ctx).First(&st, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementMissing
		}
		return nil, err
	}
	now := s.now()
	if err := s.db.WithContext(ctx).Model(&st).Updates(map[string]interface{}{
		"status":          models.SettlementCompleted,
		"settlement_date": now,
	}).Error; err != nil {
		return nil, err
	}
	st.Status = models.SettlementCompleted
	st.SettlementDate = &now
	return &st, nil
}

// List returns settlements, newest month first. An empty month lists all.
func (s *Service) List(ctx context.Context, month string, unit models.BusinessUnit) ([]models.Settlement, error) {
	q := s.db.WithContext(ctx).Order("month desc, business_unit")
	if month != "" {
		if _, _, err := ParseMonth(month); err != nil {
			return nil, err
		}
		q = q.Where("month = ?", month)
	}
	if unit != "" && unit != models.UnitAll {
		q = q.Where("business_unit = ?", unit)
	}
	var out []models.Settlement
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type MonthSummary struct {
	Month        string              `json:"month"`
	TotalRevenue float64             `json:"total_revenue"`
	OwnerShare   float64             `json:"owner_share"`
	ManagerShare float64             `json:"manager_share"`
	Settlements  []models.Settlement `json:"settlements"`
}

// CurrentMonthSummary sums the stored settlements of the current month.
func (s *Service) CurrentMonthSummary(ctx context.Context) (MonthSummary, error) {
	month := s.now().UTC().Format(monthLayout)
	list, err := s.List(ctx, month, models.UnitAll)
	if err != nil {
		return MonthSummary{}, err
	}

	total, owner, manager := decimal.Zero, decimal.Zero, decimal.Zero
	for _, st := range list {
		total = total.Add(decimal.NewFromFloat(st.TotalRevenue))
		owner = owner.Add(decimal.NewFromFloat(st.OwnerShare))
		manager = manager.Add(decimal.NewFromFloat(st.ManagerShare))
	}
	return MonthSummary{
		Month:        month,
		TotalRevenue: total.InexactFloat64(),
		OwnerShare:   owner.InexactFloat64(),
		ManagerShare: manager.InexactFloat64(),
		Settlements:  list,
	}, nil
}

// DailyReport groups the bills created on day by unit.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var bills []models.Bill
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&bills).Error; err != nil {
		return DailyReport{}, err
	}
	return buildDailyReport(start, bills), nil
}
