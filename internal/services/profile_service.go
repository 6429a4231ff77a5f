package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/dto"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNicknameEmpty     = errors.New("nickname must not be empty")
	ErrDuplicateNickname = errors.New("nickname already taken")
)

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetOrCreate returns the profile for userID, creating it with a default
// nickname derived from the email local-part on first sight. The create is
// a conflict-safe upsert so two near-simultaneous first-sights (multiple
// tabs) both land on the same row.
func (s *ProfileService) GetOrCreate(userID uuid.UUID, email string) (*models.Profile, error) {
	profile := models.Profile{
		ID:       uuid.New(),
		UserID:   userID,
		Nickname: models.DefaultNickname(email),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&profile).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Default nickname already claimed by someone else; disambiguate
		// with a short id suffix.
		profile.Nickname = profile.Nickname + "-" + userID.String()[:8]
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&profile).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	var out models.Profile
	if err := s.db.Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &out, nil
}

// UpdateNickname rejects blank input before touching the store and maps a
// uniqueness conflict to ErrDuplicateNickname so callers can tell it apart
// from other store failures.
func (s *ProfileService) UpdateNickname(userID uuid.UUID, email, nickname string) (*models.Profile, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrNicknameEmpty
	}

	profile, err := s.GetOrCreate(userID, email)
	if err != nil {
		return nil, err
	}

	err = s.db.Model(profile).Update("nickname", nickname).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateNickname
		}
		return nil, fmt.Errorf("failed to update nickname: %w", err)
	}

	profile.Nickname = nickname
	return profile, nil
}

// Nickname resolves the display name for a user, falling back to the email
// local-part when no profile row exists. Lookups are per-read, not pushed.
func (s *ProfileService) Nickname(userID uuid.UUID) (string, error) {
	var profile models.Profile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return profile.Nickname, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}
	return models.DefaultNickname(user.Email), nil
}

const searchLimit = 10

type searchRow struct {
	ID       uuid.UUID
	Email    string
	Nickname *string
}

// Search does a case-insensitive substring match over emails, excluding
// the caller and everyone already in their friend set.
func (s *ProfileService) Search(userID uuid.UUID, query string, excludeIDs []uuid.UUID) ([]dto.ProfileResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []dto.ProfileResponse{}, nil
	}

	exclude := append([]uuid.UUID{userID}, excludeIDs...)

	var rows []searchRow
	err := s.db.Table("users").
		Select("users.id, users.email, profiles.nickname").
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Where("users.deleted_at IS NULL").
		Where("LOWER(users.email) LIKE ?", "%"+strings.ToLower(query)+"%").
		Where("users.id NOT IN ?", exclude).
		Order("users.email").
		Limit(searchLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}

	results := make([]dto.ProfileResponse, 0, len(rows))
	for _, r := range rows {
		nickname := models.DefaultNickname(r.Email)
		if r.Nickname != nil && *r.Nickname != "" {
			nickname = *r.Nickname
		}
		results = append(results, dto.ProfileResponse{
			UserID:   r.ID,
			Email:    r.Email,
			Nickname: nickname,
		})
	}
	return results, nil
}
