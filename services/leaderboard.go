package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"java-quest-backend/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// LeaderboardSize bounds the public ranking — display feature, fixed by design.
const LeaderboardSize = 10

const leaderboardXPKey = "leaderboard:xp"

// ErrRankUnavailable: rank lookups need the Redis mirror, which is optional.
var ErrRankUnavailable = errors.New("rank lookup unavailable without redis")

// LeaderboardService serves the ranked top-10 view from Postgres and keeps an
// optional Redis sorted-set mirror of XP totals for O(log n) rank lookups.
// Postgres is the source of truth; the mirror tolerates bounded staleness.
type LeaderboardService struct {
	DB    *gorm.DB
	Redis *redis.Client // nil = mirror disabled
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb}
}

// GetLeaderboard returns up to LeaderboardSize rows, XP descending, ties
// broken by account creation order.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	return s.TopByXP(ctx, LeaderboardSize)
}

// TopByXP returns the n highest-XP users projected for display.
func (s *LeaderboardService) TopByXP(ctx context.Context, n int) ([]models.LeaderboardRow, error) {
	rows := make([]models.LeaderboardRow, 0, n)
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "name", "xp", "level", "badges").
		Order("xp DESC, created_at ASC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query top %d by xp: %w", n, err)
	}
	return rows, nil
}

// RecordXP mirrors a committed XP total into the sorted set.
func (s *LeaderboardService) RecordXP(ctx context.Context, userID string, xp int64) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.ZAdd(ctx, leaderboardXPKey, redis.Z{
		Score:  float64(xp),
		Member: userID,
	}).Err()
}

// GetRank returns a user's 1-based global rank by XP.
func (s *LeaderboardService) GetRank(ctx context.Context, userID string) (int64, error) {
	if s.Redis == nil {
		return 0, ErrRankUnavailable
	}
	rank, err := s.Redis.ZRevRank(ctx, leaderboardXPKey, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("rank lookup for %s: %w", userID, err)
	}
	// ZRevRank is 0-based
	return rank + 1, nil
}

// RebuildMirror reloads the whole sorted set from Postgres, healing any drift
// from missed RecordXP calls.
func (s *LeaderboardService) RebuildMirror(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}

	type xpRow struct {
		ID string
		XP int64
	}
	var users []xpRow
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Select("id", "xp").Find(&users).Error; err != nil {
		return fmt.Errorf("load xp totals: %w", err)
	}

	pipe := s.Redis.Pipeline()
	pipe.Del(ctx, leaderboardXPKey)
	for _, u := range users {
		pipe.ZAdd(ctx, leaderboardXPKey, redis.Z{Score: float64(u.XP), Member: u.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboard mirror: %w", err)
	}
	return nil
}

// StartMirrorScheduler rebuilds the mirror every few minutes.
func (s *LeaderboardService) StartMirrorScheduler() {
	if s.Redis == nil {
		return
	}
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.RebuildMirror(ctx); err != nil {
				log.Printf("[Leaderboard] mirror rebuild failed: %v", err)
			}
		}),
	)
}
