package models

import (
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BadgeType: static display metadata for a badge label (seeded at startup).
// Game clients send plain labels; the catalog carries how to render them.
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // slug of the label, e.g. "first-win"
	Label       string `gorm:"uniqueIndex;not null" json:"label"` // exact label stored on users, e.g. "First Win"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url,omitempty"`
	Rarity      string `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	QuestLevel  int    `gorm:"default:0" json:"quest_level"`                    // 1-6 mini-game that awards it, 0 = global
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

var titleCaser = cases.Title(language.English)

func newQuestBadge(label, description, rarity string, questLevel int) BadgeType {
	return BadgeType{
		Code:        slug.Make(label),
		Label:       label,
		Name:        titleCaser.String(label),
		Description: description,
		Rarity:      rarity,
		QuestLevel:  questLevel,
	}
}

// QuestBadges is the catalog of badges the six mini-games hand out
var QuestBadges = []BadgeType{
	newQuestBadge("First Win", "Completed your first challenge", "common", 0),
	newQuestBadge("Second Win", "Completed a second challenge", "common", 0),
	newQuestBadge("Village Scholar", "Answered every village quiz question", "common", 1),
	newQuestBadge("Tree Climber", "Scaled the OOP tree without falling", "rare", 2),
	newQuestBadge("Desert Survivor", "Handled every desert exception", "rare", 3),
	newQuestBadge("Boss Slayer", "Defeated the boss battle", "epic", 4),
	newQuestBadge("Thread Tamer", "Freed the monkeys from the jungle deadlock", "epic", 5),
	newQuestBadge("Stream Navigator", "Filtered the river all the way down", "epic", 6),
	newQuestBadge("Java Master", "Finished every quest level", "legendary", 0),
}
