package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// appBlob is the single-row-per-key document table.
type appBlob struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

func (appBlob) TableName() string { return "app_blobs" }

// PostgresStore keeps blobs in Postgres via GORM.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore opens the pool, pings it, and migrates the blob table.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&appBlob{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate blob table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB exposes the pool for components that share it (conversation memory).
func (s *PostgresStore) DB() *gorm.DB { return s.db }

// Get returns the stored value or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row appBlob
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %s: %w", key, err)
	}
	return row.Value, nil
}

// Set upserts the value for the key.
func (s *PostgresStore) Set(ctx context.Context, key string, data []byte) error {
	row := appBlob{Key: key, Value: data, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save blob %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
