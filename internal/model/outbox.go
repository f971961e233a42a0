package model

import "time"

const (
	EventWalletCreated    = "WalletCreated"
	EventBalanceIncreased = "BalanceIncreased"
	EventBalanceDecreased = "BalanceDecreased"
	EventWalletDeleted    = "WalletDeleted"
)

type OutboxEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	AggregateID uint64    `gorm:"not null;index"`
	EventType   string    `gorm:"size:64;not null"`
	Payload     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	Processed   bool      `gorm:"not null;default:false"`
	ProcessedAt *time.Time
}

func (OutboxEvent) TableName() string { return "wallet_outbox" }
