package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User is the single per-player record: identity plus gamified progression
// (denormalized for performance — the leaderboard reads it directly)
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Core progression
	XP    int64 `json:"xp" gorm:"default:0"`
	Level int   `json:"level" gorm:"default:1"` // always 1 + XP/1000, raised but never lowered

	// Earned badge labels, unique, first-seen order
	Badges BadgeList `json:"badges" gorm:"type:jsonb;default:'[]'"`

	// Activity counter: one increment per completed challenge
	TotalSolved int64 `json:"totalSolved" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BadgeList is an ordered set of badge labels stored as a JSON array column.
type BadgeList []string

func (b BadgeList) Value() (driver.Value, error) {
	if b == nil {
		b = BadgeList{}
	}
	return json.Marshal(b)
}

func (b *BadgeList) Scan(src interface{}) error {
	if src == nil {
		*b = BadgeList{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported badge list source type %T", src)
	}
}

// Contains reports whether label was already earned.
func (b BadgeList) Contains(label string) bool {
	for _, existing := range b {
		if existing == label {
			return true
		}
	}
	return false
}

// Add appends label unless already present (set-union, first-seen order kept).
func (b BadgeList) Add(label string) BadgeList {
	if b.Contains(label) {
		return b
	}
	return append(b, label)
}

// LeaderboardRow is the public projection served on the leaderboard —
// avoids exposing email, password hash, or counters.
type LeaderboardRow struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	XP     int64     `json:"xp"`
	Level  int       `json:"level"`
	Badges BadgeList `json:"badges" gorm:"type:jsonb"`
}
