package models

import "time"

// Entry represents a single journal entry belonging to a user. Date holds the
// calendar date of the entry (UTC midnight); UpdatedAt stays NULL until the
// entry is first mutated.
type Entry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Date        time.Time  `gorm:"not null" json:"date"`
	Description string     `gorm:"type:text;not null" json:"description"`
}
