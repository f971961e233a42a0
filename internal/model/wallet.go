package model

import (
	"github.com/shopspring/decimal"
)

// Wallet is a per-user monetary balance. IDUser never changes after creation.
type Wallet struct {
	IDWallet uint64          `gorm:"primaryKey;column:id_wallet"`
	IDUser   uint64          `gorm:"not null;index;column:id_user"`
	Balance  decimal.Decimal `gorm:"type:numeric(20,8);not null"`
}

func (Wallet) TableName() string { return "wallets" }
