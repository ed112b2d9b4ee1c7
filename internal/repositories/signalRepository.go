package repositories

import (
	"context"
	"errors"
	"time"

	"ForexSignalBot/internal/models"

	"gorm.io/gorm"
)

type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a new instance of SignalRepository
func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Migrate creates or updates the signal and forecast tables
func (r *SignalRepository) Migrate() error {
	return r.db.AutoMigrate(&models.SignalRecord{}, &models.ForecastRecord{})
}

// Create stores a dispatched signal
func (r *SignalRepository) Create(ctx context.Context, record *models.SignalRecord) error {
	if record == nil {
		return errors.New("signal cannot be nil")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID retrieves a SignalRecord by its ID
func (r *SignalRepository) FindByID(ctx context.Context, id uint) (*models.SignalRecord, error) {
	if id == 0 {
		return nil, errors.New("invalid id")
	}
	var record models.SignalRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

// MarkExecuted flags a stored signal as filled by the broker
func (r *SignalRepository) MarkExecuted(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SignalRecord{}).
		Where("id = ?", id).
		Update("executed", true).Error
}

// Exists reports whether a signal for the same symbol, timeframe and direction
// was stored at or after since
func (r *SignalRepository) Exists(ctx context.Context, symbol, timeframe, direction string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SignalRecord{}).
		Where("symbol = ? AND time_frame = ? AND direction = ? AND created_at >= ?", symbol, timeframe, direction, since).
		Count(&count).Error
	return count > 0, err
}

// FindRecent returns the latest signals, newest first
func (r *SignalRepository) FindRecent(ctx context.Context, limit int) ([]models.SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []models.SignalRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// FindBySymbol returns the latest signals for one symbol, newest first
func (r *SignalRepository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.SignalRecord, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []models.SignalRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// CreateForecast stores a signal that waits for price to reach its entry
func (r *SignalRepository) CreateForecast(ctx context.Context, record *models.ForecastRecord) error {
	if record == nil {
		return errors.New("forecast cannot be nil")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// FindPendingForecasts returns untriggered forecasts, oldest first
func (r *SignalRepository) FindPendingForecasts(ctx context.Context) ([]models.ForecastRecord, error) {
	var records []models.ForecastRecord
	err := r.db.WithContext(ctx).
		Where("triggered = ?", false).
		Order("created_at ASC").
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// PendingForecastExists reports whether an untriggered forecast for the same
// symbol, timeframe and direction is waiting
func (r *SignalRepository) PendingForecastExists(ctx context.Context, symbol, timeframe, direction string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ForecastRecord{}).
		Where("symbol = ? AND time_frame = ? AND direction = ? AND triggered = ?", symbol, timeframe, direction, false).
		Count(&count).Error
	return count > 0, err
}

// MarkForecastTriggered flags a forecast as executed at the given time
func (r *SignalRepository) MarkForecastTriggered(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.ForecastRecord{}).
		Where("id = ? AND triggered = ?", id, false).
		Updates(map[string]any{"triggered": true, "trigger_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
