package model

import "time"

// Family groups users that share a chore board.
type Family struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Members   []User `gorm:"foreignKey:FamilyID"`
}
