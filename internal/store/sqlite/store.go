package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"polyflow/internal/store/model"
)

// SqliteStore is the gorm-backed trade journal.
type SqliteStore struct {
	db *gorm.DB
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newSqliteStore(db)
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return newSqliteStore(db)
}

func newSqliteStore(db *gorm.DB) (*SqliteStore, error) {
	if err := db.AutoMigrate(&model.TradeRecordModel{}, &model.ResolutionModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db}, nil
}

// SaveTrade upserts by signal id so replayed executions stay idempotent.
func (s *SqliteStore) SaveTrade(ctx context.Context, rec model.TradeRecordModel) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "signal_id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
}

func (s *SqliteStore) SaveResolution(ctx context.Context, rec model.ResolutionModel) error {
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *SqliteStore) RecentTrades(ctx context.Context, limit int) ([]model.TradeRecordModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.TradeRecordModel
	err := s.db.WithContext(ctx).
		Order("executed_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *SqliteStore) RecentResolutions(ctx context.Context, limit int) ([]model.ResolutionModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.ResolutionModel
	err := s.db.WithContext(ctx).
		Order("resolved_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
