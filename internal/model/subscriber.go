package model

import "time"

// Subscriber is a Telegram chat that receives completion notifications and digests.
type Subscriber struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"uniqueIndex"`
	FirstName string
	Username  string
	Muted     bool `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
