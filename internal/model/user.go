package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User carries the two spendable pools. MainBalance is replenished by
// deposits and winnings; Bonus is promotional money consumed first at
// purchase time. Both are mutated only through the repository CAS update.
type User struct {
	ID          uint64          `gorm:"primaryKey" json:"id"`
	Username    string          `gorm:"size:64" json:"username"`
	MobileNo    string          `gorm:"size:20;not null" json:"mobile_no"`
	MainBalance decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'" json:"main_balance"`
	Bonus       decimal.Decimal `gorm:"type:numeric(20,8);not null;default:'0'" json:"bonus"`
	Version     uint64          `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
