package models

import "time"

// Operator is a checkpoint staff account for the admin API.
type Operator struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string `gorm:"size:255;not null;unique"`
	HashedPassword []byte `gorm:"not null"`
	Role           string `gorm:"size:32;not null;default:operator"` // operator | administrator
}
