package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount  = errors.New("amount must be a positive number of milliliters")
	ErrInvalidCupSize = errors.New("cup size must be between 1 and 1000 ml")
)

const historyWindow = 50

type IntakeService struct {
	db *gorm.DB
}

func NewIntakeService(db *gorm.DB) *IntakeService {
	return &IntakeService{db: db}
}

// RecordDrink appends a drink event. Amounts are validated locally before
// any store call.
func (s *IntakeService) RecordDrink(userID uuid.UUID, amountML int) (*models.DrinkLog, error) {
	if amountML <= 0 {
		return nil, ErrInvalidAmount
	}

	entry := models.DrinkLog{
		ID:       uuid.New(),
		UserID:   userID,
		AmountML: amountML,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to record drink: %w", err)
	}
	return &entry, nil
}

// TodayTotal sums amount_ml since local midnight. Recomputed fully on each
// call; no incremental counter is kept, so missed events cannot drift it.
func (s *IntakeService) TodayTotal(userID uuid.UUID) (int, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var total int
	err := s.db.Model(&models.DrinkLog{}).
		Select("COALESCE(SUM(amount_ml), 0)").
		Where("user_id = ? AND created_at >= ?", userID, midnight).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute today total: %w", err)
	}
	return total, nil
}

// History returns the newest drink events, capped at 50.
func (s *IntakeService) History(userID uuid.UUID, limit int) ([]models.DrinkLog, error) {
	if limit <= 0 || limit > historyWindow {
		limit = historyWindow
	}

	var entries []models.DrinkLog
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drink history: %w", err)
	}
	return entries, nil
}

// GetSettings returns the user's settings, defaulting cup size to 250ml
// when no row exists. The default is not persisted.
func (s *IntakeService) GetSettings(userID uuid.UUID) (*models.UserSetting, error) {
	var setting models.UserSetting
	err := s.db.Where("user_id = ?", userID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserSetting{UserID: userID, CupSizeML: models.DefaultCupSizeML}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &setting, nil
}

// SetCupSize validates the range locally, then upserts keyed by user.
func (s *IntakeService) SetCupSize(userID uuid.UUID, ml int) (*models.UserSetting, error) {
	if ml <= 0 || ml > 1000 {
		return nil, ErrInvalidCupSize
	}

	setting := models.UserSetting{
		ID:        uuid.New(),
		UserID:    userID,
		CupSizeML: ml,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cup_size_ml", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	var out models.UserSetting
	if err := s.db.Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &out, nil
}
