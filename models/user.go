package models

import "time"

// User is an application user keyed by the subject claim of the external
// identity provider. The Auth0 subject is immutable once the row exists.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Auth0ID   string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
}
