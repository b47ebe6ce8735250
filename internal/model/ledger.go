package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LedgerDeposit        = "deposit"
	LedgerWithdrawal     = "withdrawal"
	LedgerWinning        = "winning"
	LedgerTicketPurchase = "ticket_purchase"
)

const (
	FundingMain  = "main"
	FundingBonus = "bonus"
)

// LedgerEntry is an append-only record of one balance-affecting event.
// AcctBalance snapshots the pool that was debited or credited, after the
// operation; FundingSource says which pool that was.
type LedgerEntry struct {
	ID             uint64          `gorm:"primaryKey" json:"id"`
	UserID         uint64          `gorm:"not null;index" json:"user_id"`
	Type           string          `gorm:"size:32;not null" json:"transaction_type"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount_involved"`
	AcctBalance    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"acct_balance"`
	FundingSource  string          `gorm:"size:8;not null;default:'main'" json:"funding_source"`
	TicketID       *string         `gorm:"size:32" json:"ticket_id,omitempty"`
	IdempotencyKey *string         `gorm:"size:64" json:"-"`
	TimeStamp      int64           `gorm:"not null" json:"time_stamp"`
	TransDate      string          `gorm:"size:16;not null" json:"trans_date"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "transactions" }
