package model

import "time"

// Roles a family member can hold.
const (
	RoleUser   = "user"
	RoleLeader = "leader"
	RoleAdmin  = "admin"
)

// User is a household member tasks can be assigned to.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	Username   string `gorm:"uniqueIndex"`
	Email      string `gorm:"index"`
	Role       string `gorm:"default:user"`
	FamilyID   *uint  `gorm:"index"`
	TelegramID *int64 `gorm:"uniqueIndex"`

	// TZOffset is minutes behind UTC, as browsers report it.
	TZOffset  int `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxTZOffset bounds a client timezone offset in minutes.
const MaxTZOffset = 14 * 60

func ValidTZOffset(minutes int) bool {
	return minutes >= -MaxTZOffset && minutes <= MaxTZOffset
}

// LocalNow shifts a server instant onto the user's wall clock.
func (u User) LocalNow(now time.Time) time.Time {
	return now.UTC().Add(-time.Duration(u.TZOffset) * time.Minute)
}

func (u User) IsLeader() bool {
	return u.Role == RoleLeader || u.Role == RoleAdmin
}
