package profile

import "time"

// Profile is the locally cached copy of a user's identity-service profile.
// The coaching session only needs the display name; the rest is kept because
// the identity service returns it and re-fetching is not free.
type Profile struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"uniqueIndex;not null"`
	DisplayName string
	Email       string
	AvatarURL   string
	FetchedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
