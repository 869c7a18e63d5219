package database

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"fpi/server/internal/models"
)

// NewGormDB opens the load-side connection used by the batch processor.
func NewGormDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	return db, nil
}

var testDBCounter atomic.Int64

// NewTestDB opens a fresh in-memory database for tests. Each call gets
// its own named memory database so tests don't share state, and the pool
// is pinned to one connection so the database outlives individual queries.
func NewTestDB() (*gorm.DB, error) {
	name := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := NewGormDB(name)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// MigrateSchema creates the entity tables and their indexes.
func MigrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Location{},
		&models.Parcel{},
		&models.Transaction{},
	)
}

// LoadBatch upserts one batch inside the caller's transaction, parents
// first so every transaction's parcel and location exist by the time it
// is inserted. Re-loading the same extract is a no-op: conflicts on the
// natural key are ignored.
func LoadBatch(tx *gorm.DB, batch *models.LoadBatch) error {
	if len(batch.Locations) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "commune_code"}, {Name: "department_code"}},
			DoNothing: true,
		}).Create(batch.Locations).Error
		if err != nil {
			return fmt.Errorf("failed to upsert locations: %w", err)
		}
	}

	if len(batch.Parcels) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(batch.Parcels).Error
		if err != nil {
			return fmt.Errorf("failed to upsert parcels: %w", err)
		}
	}

	if len(batch.Transactions) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "parcel_id"},
				{Name: "date"},
				{Name: "price"},
				{Name: "property_type"},
				{Name: "building_area"},
			},
			DoNothing: true,
		}).Create(batch.Transactions).Error
		if err != nil {
			return fmt.Errorf("failed to upsert transactions: %w", err)
		}
	}

	return nil
}
