package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TicketStatusPending = "pending"
	TicketStatusWon     = "won"
	TicketStatusLost    = "lost"
)

// Ticket is immutable after creation except for Status, which an external
// settlement process flips to won/lost after the draw.
type Ticket struct {
	ID               uint64          `gorm:"primaryKey" json:"-"`
	TicketID         string          `gorm:"size:32;not null;uniqueIndex" json:"ticket_id"`
	UserID           uint64          `gorm:"not null;index" json:"user_id"`
	GameID           string          `gorm:"size:32;not null" json:"game_id"`
	MobileNo         string          `gorm:"size:20;not null" json:"mobile_no"`
	StakeAmt         decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"stake_amt"`
	PotentialWinning decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"potential_winning"`
	TimeStamp        int64           `gorm:"not null" json:"time_stamp"`
	DrawTime         string          `gorm:"size:16;not null" json:"draw_time"`
	DrawDate         string          `gorm:"size:16;not null" json:"draw_date"`
	Status           string          `gorm:"size:16;not null;default:'pending'" json:"ticket_status"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Ticket) TableName() string { return "tickets" }
