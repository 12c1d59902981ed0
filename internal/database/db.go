package database

import (
	"fmt"

	"deora-backend/internal/config"
	"deora-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config, log *zap.Logger) error {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := Migrate(db, log); err != nil {
		return err
	}

	DB = db
	log.Info("database connected, migration finished")
	return nil
}

// Migrate brings the schema up to date. It runs against Postgres in
// production and SQLite in tests, so raw SQL here stays portable.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	m := db.Migrator()

	// Early booking rows kept the paid sum in total_paid.
	if m.HasTable(&models.Booking{}) &&
		m.HasColumn(&models.Booking{}, "total_paid") &&
		!m.HasColumn(&models.Booking{}, "paid_amount") {
		log.Info("renaming bookings.total_paid to paid_amount")
		if err := m.RenameColumn(&models.Booking{}, "total_paid", "paid_amount"); err != nil {
			return fmt.Errorf("rename bookings.total_paid: %w", err)
		}
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Availability lookups only ever look at blocking bookings.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_bookings_room_active
		ON bookings (room_id, start_date, end_date)
		WHERE status IN ('confirmed', 'checked-in')`).Error; err != nil {
		log.Warn("active booking index not created", zap.Error(err))
	}

	if err := seedUnitSettings(db); err != nil {
		return err
	}
	return nil
}

func seedUnitSettings(db *gorm.DB) error {
	settings := models.DefaultUnitSettings()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return fmt.Errorf("seed unit settings: %w", err)
	}
	return nil
}
