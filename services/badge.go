package services

import (
	"context"
	"fmt"
	"log"

	"java-quest-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeService owns the static badge catalog: display metadata for the labels
// the mini-games hand out. Labels on user records stay plain strings.
type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedCatalog inserts any quest badges missing from the catalog (idempotent).
func (s *BadgeService) SeedCatalog(ctx context.Context) error {
	for _, badge := range models.QuestBadges {
		var count int64
		if err := s.DB.WithContext(ctx).
			Model(&models.BadgeType{}).
			Where("code = ?", badge.Code).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check badge %s: %w", badge.Code, err)
		}
		if count > 0 {
			continue
		}
		badge.ID = uuid.NewString()
		if err := s.DB.WithContext(ctx).Create(&badge).Error; err != nil {
			return fmt.Errorf("seed badge %s: %w", badge.Code, err)
		}
		log.Printf("🎖️  Badge seeded: %s (%s)", badge.Name, badge.Code)
	}
	return nil
}

// ListCatalog returns all known badges, stable order by quest level then code.
func (s *BadgeService) ListCatalog(ctx context.Context) ([]models.BadgeType, error) {
	var badges []models.BadgeType
	err := s.DB.WithContext(ctx).
		Order("quest_level ASC, code ASC").
		Find(&badges).Error
	if err != nil {
		return nil, fmt.Errorf("list badge catalog: %w", err)
	}
	return badges, nil
}
