package domain

import "time"

// User mirrors the platform account a player signs in with.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	AvatarURL   string
	TOTPSecret  *string // base32, nil when two-factor is off
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u User) HasTOTP() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}
