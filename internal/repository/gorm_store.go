package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	applogger "github.com/Harry166/stro/pkg/logger"
)

// GormStore implements the watchlist and alert stores on PostgreSQL.
type GormStore struct {
	db  *gorm.DB
	l   *applogger.Logger
	now func() time.Time
}

var (
	_ domrepo.WatchlistStore = (*GormStore)(nil)
	_ domrepo.AlertStore     = (*GormStore)(nil)
)

func NewGormStore(ctx context.Context, dsn string, production bool, l *applogger.Logger) (*GormStore, error) {
	level := gormlogger.Info
	if production {
		level = gormlogger.Error
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	return newGormStore(ctx, db, l)
}

func newGormStore(ctx context.Context, db *gorm.DB, l *applogger.Logger) (*GormStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&models.WatchlistItem{}, &models.AlertEvent{}); err != nil {
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	applogger.Or(l).Info("postgres store ready")
	return &GormStore{db: db, l: applogger.Or(l), now: time.Now}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) List(ctx context.Context, userID int64) ([]models.WatchlistItem, error) {
	var items []models.WatchlistItem
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return items, nil
}

func (s *GormStore) Add(ctx context.Context, userID int64, symbol string) error {
	item := models.WatchlistItem{UserID: userID, Symbol: symbol, AddedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domrepo.ErrDuplicate
		}
		return fmt.Errorf("add watchlist: %w", err)
	}
	return nil
}

func (s *GormStore) Remove(ctx context.Context, userID int64, symbol string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Delete(&models.WatchlistItem{})
	if res.Error != nil {
		return false, fmt.Errorf("remove watchlist: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Users(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&models.WatchlistItem{}).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

func (s *GormStore) Append(ctx context.Context, ev *models.AlertEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domrepo.ErrDuplicate
		}
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, userID int64, since time.Time, limit int) ([]models.AlertEvent, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var evs []models.AlertEvent
	if err := q.Order("created_at DESC").Find(&evs).Error; err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	return evs, nil
}
