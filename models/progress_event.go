package models

// ProgressEvent records a single completed challenge (one applyProgress call)
type ProgressEvent struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	// XP carried by this completion (pre-calculated by the game client)
	XPGained int64 `json:"xp_gained" gorm:"default:0"`

	// Badge labels earned with this completion, possibly already held
	BadgesEarned BadgeList `json:"badges_earned" gorm:"type:jsonb;default:'[]'"`

	// Level after the update was applied
	LevelAfter int `json:"level_after" gorm:"default:1"`

	Timestamps
}
