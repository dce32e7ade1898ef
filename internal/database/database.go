package database

import (
	"fmt"

	"attblink/internal/config"
	logging "attblink/internal/logging"
	"attblink/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init connects to postgres and migrates the session and trial tables.
func Init(conf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(conf.DSN()), &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully.", zap.String("host", conf.Host), zap.String("dbname", conf.DBName))

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")
	return db, nil
}

// Migrate creates the tables and the index the results viewer queries by.
func Migrate(db *gorm.DB) error {
	// AutoMigrate does not create composite indexes, so that one is done by hand.
	if err := db.AutoMigrate(&models.Session{}, &models.TrialRecord{}); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	trialIndex := `CREATE INDEX IF NOT EXISTS idx_trial_records_session_trial ON trial_records (session_id, trial_number);`
	if err := db.Exec(trialIndex).Error; err != nil {
		return fmt.Errorf("failed to create custom index on trial_records: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
