package config

import (
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bus_ticketing/internal/logger"
	"bus_ticketing/internal/models"
)

// DSN builds the postgres data source name.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

// OpenDB connects to postgres through the lib/pq driver and migrates the schema.
func OpenDB(cfg DBConfig) (*gorm.DB, error) {
	dialector := postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        cfg.DSN(),
	})
	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig routes gorm's SQL logging through logrus.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger: gormlogger.New(logger.GormLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Operator{},
		&models.Bus{},
		&models.Route{},
		&models.RouteStop{},
		&models.Booking{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}
