package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"java-quest-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XPPerLevel: flat XP cost per level. Level = 1 + floor(XP / 1000).
const XPPerLevel = 1000

// LevelForXP derives the level for an XP total. Pure — the stored level is
// only ever raised to this value, never lowered.
func LevelForXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	return 1 + int(xp/XPPerLevel)
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNegativeXP   = errors.New("xpGained must not be negative")
)

// XPMirror receives committed XP totals (e.g., the Redis leaderboard mirror).
// Failures are logged, never surfaced — the DB row is the source of truth.
type XPMirror interface {
	RecordXP(ctx context.Context, userID string, xp int64) error
}

type ProgressService struct {
	DB     *gorm.DB
	Mirror XPMirror // optional
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{DB: db}
}

// ApplyProgress atomically applies one completed challenge to a user:
// adds XP, bumps totalSolved, raises the level, unions badges — returns the
// updated record. The read-modify-write runs in one transaction with the row
// locked, so concurrent completions for the same user never lose updates.
func (s *ProgressService) ApplyProgress(ctx context.Context, userID string, xpGained int64, badgesEarned []string) (*models.User, error) {
	if xpGained < 0 {
		return nil, ErrNegativeXP
	}

	var updated *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := s.lockForUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user %s: %w", userID, err)
		}

		user.XP += xpGained
		user.TotalSolved++ // one call = one completed challenge, badges or not

		if newLevel := LevelForXP(user.XP); newLevel > user.Level {
			user.Level = newLevel
		}

		for _, label := range badgesEarned {
			user.Badges = user.Badges.Add(label)
		}

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("save user %s: %w", userID, err)
		}

		event := models.ProgressEvent{
			ID:           uuid.NewString(),
			UserID:       userID,
			XPGained:     xpGained,
			BadgesEarned: models.BadgeList(badgesEarned),
			LevelAfter:   user.Level,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("record progress event for %s: %w", userID, err)
		}

		// Copy for return (avoid pointer to tx-scoped var)
		updated = &models.User{}
		*updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Mirror != nil {
		if err := s.Mirror.RecordXP(ctx, updated.ID, updated.XP); err != nil {
			log.Printf("⚠️  Leaderboard mirror update failed for %s: %v", updated.ID, err)
		}
	}

	log.Printf("🎮 Progress applied: %s → XP=%d, Lvl=%d, Solved=%d",
		userID, updated.XP, updated.Level, updated.TotalSolved)

	return updated, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that support it.
// SQLite serializes writers on its own.
func (s *ProgressService) lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// GetProgress returns the full record for a user.
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return &user, nil
}

// GetRecentEvents returns a user's completions in the last N days, newest first.
func (s *ProgressService) GetRecentEvents(ctx context.Context, userID string, days int) ([]models.ProgressEvent, error) {
	if days < 1 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	var events []models.ProgressEvent
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", userID, err)
	}
	return events, nil
}
