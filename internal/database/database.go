package database

import (
	"fmt"
	"log"

	"giveaway-referrals/internal/config"
	"giveaway-referrals/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open returns a gorm handle for the configured driver
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	default:
		dialector = postgres.Open(cfg.GetDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		// between concurrent transactions.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to configure sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Connect establishes the shared database connection
func Connect(cfg *config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db

	log.Printf("Database connection established successfully (%s)", cfg.Database.Driver)
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate creates or updates the schema on db. The unique index on
// referral_records (campaign_id, admission_key) is what makes attribution
// commits exact, so a failure here is fatal.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Campaign{},
		&models.ReferralRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	if !db.Migrator().HasIndex(&models.ReferralRecord{}, "ux_referral_campaign_key") {
		return fmt.Errorf("unique index ux_referral_campaign_key is missing")
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
