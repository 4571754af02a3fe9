package models

import "time"

// TollTransaction is the durable archive row for one successful charge.
// The CSV transaction log stays the system of record; this mirror exists
// for querying. Rows are append-only.
type TollTransaction struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	EventID       string    `gorm:"size:64;not null;uniqueIndex"`
	VehicleKey    string    `gorm:"size:32;not null;index"`
	PaymentMethod string    `gorm:"size:32;not null"`
	AmountCents   int64     `gorm:"not null"`
	BalanceCents  int64     `gorm:"not null"`
	ChargedAt     time.Time `gorm:"not null;index"`
}
