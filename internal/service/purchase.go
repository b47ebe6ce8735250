package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/padilotto/lotto-service/internal/draws"
	"github.com/padilotto/lotto-service/internal/model"
	"github.com/padilotto/lotto-service/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseInput is one logical ticket purchase.
type PurchaseInput struct {
	UserID           uint64
	StakeAmt         decimal.Decimal
	PotentialWinning decimal.Decimal
	DrawDay          int
	MobileNo         string
	IdempotencyKey   string
}

// PurchaseResult reports the issued ticket and the authoritative balances
// after settlement. Replayed is set when an idempotency key matched an
// earlier purchase and no new deduction happened.
type PurchaseResult struct {
	Ticket      *model.Ticket
	MainBalance decimal.Decimal
	Bonus       decimal.Decimal
	Replayed    bool
}

// Purchase moves the stake from the user's bonus or main balance into a new
// ticket, atomically. Funding is strict either/or, checked in order: the
// bonus pool pays if it alone covers the stake, otherwise the main balance
// pays if it alone covers the stake, otherwise the purchase is rejected with
// no mutation. Stakes are never split across pools.
//
// Balance update, ticket insert, ledger append and outbox event share one DB
// transaction, so a failure before commit leaves no partial state. The only
// exception is the ledger append under the lenient policy, where the
// purchase commits without its ledger row and the gap is logged.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	if in.StakeAmt.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if in.PotentialWinning.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	now := time.Now()
	draw, err := draws.Next(in.DrawDay, now)
	if err != nil {
		return nil, err
	}

	res := &PurchaseResult{}
	err = s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		existed, prior, err := s.repo.LedgerEntryExists(ctx, tx, in.UserID, in.IdempotencyKey, model.LedgerTicketPurchase)
		if err != nil {
			return err
		}
		if existed {
			return s.replay(ctx, tx, prior, res)
		}

		u, err := s.repo.GetUserForUpdate(ctx, tx, in.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		newMain, newBonus := u.MainBalance, u.Bonus
		var funding string
		var acctBalance decimal.Decimal
		switch {
		case u.Bonus.GreaterThanOrEqual(in.StakeAmt):
			newBonus = u.Bonus.Sub(in.StakeAmt)
			funding = model.FundingBonus
			acctBalance = newBonus
		case u.MainBalance.GreaterThanOrEqual(in.StakeAmt):
			newMain = u.MainBalance.Sub(in.StakeAmt)
			funding = model.FundingMain
			acctBalance = newMain
		default:
			return repo.ErrInsufficientFunds
		}

		if err := s.repo.UpdateBalances(ctx, tx, u.ID, newMain, newBonus, u.Version); err != nil {
			return err
		}

		id, err := s.ids.Next()
		if err != nil {
			return err
		}
		mobile := in.MobileNo
		if mobile == "" {
			mobile = u.MobileNo
		}
		ticket := &model.Ticket{
			TicketID:         id,
			UserID:           u.ID,
			GameID:           draws.GameID(in.StakeAmt.String()),
			MobileNo:         mobile,
			StakeAmt:         in.StakeAmt,
			PotentialWinning: in.PotentialWinning,
			TimeStamp:        now.UnixMilli(),
			DrawTime:         draw.Time,
			DrawDate:         draw.Date,
			Status:           model.TicketStatusPending,
		}
		if err := s.repo.CreateTicket(ctx, tx, ticket); err != nil {
			return err
		}

		entry := &model.LedgerEntry{
			UserID:        u.ID,
			Type:          model.LedgerTicketPurchase,
			Amount:        in.StakeAmt,
			AcctBalance:   acctBalance,
			FundingSource: funding,
			TicketID:      &ticket.TicketID,
			TimeStamp:     now.UnixMilli(),
			TransDate:     draws.TransDate(now),
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			entry.IdempotencyKey = &key
		}
		// the ledger insert runs under a savepoint: on postgres an errored
		// statement poisons the enclosing transaction, and the lenient
		// policy needs the purchase to survive a discarded ledger write
		ledgerErr := tx.Transaction(func(ltx *gorm.DB) error {
			return s.repo.CreateLedgerEntry(ctx, ltx, entry)
		})
		if ledgerErr != nil {
			if s.ledgerStrict {
				return ledgerErr
			}
			s.log.Errorw("ledger write failed after ticket issue, reconciliation needed",
				"user_id", u.ID, "ticket_id", ticket.TicketID,
				"amount", in.StakeAmt, "time_stamp", now.UnixMilli(), "err", ledgerErr)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"user_id": u.ID, "ticket_id": ticket.TicketID,
			"stake_amt": in.StakeAmt, "funding_source": funding,
			"main_balance": newMain, "bonus": newBonus,
		})
		evt := &model.OutboxEvent{
			Aggregate: "Ticket", AggregateID: u.ID,
			EventType: "TicketPurchased", Payload: string(payload),
		}
		if err := s.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
			return err
		}

		res.Ticket = ticket
		res.MainBalance = newMain
		res.Bonus = newBonus
		return nil
	})
	if err != nil {
		return nil, err
	}
	// refresh the cache only once the deduction is committed; a rolled-back
	// purchase must never leave deducted balances in Redis
	if !res.Replayed {
		if err := s.repo.CacheBalances(ctx, in.UserID, res.MainBalance, res.Bonus); err != nil {
			s.log.Warn(err)
		}
	}
	return res, nil
}

// replay rebuilds the original purchase outcome from the ledger row an
// idempotency key matched.
func (s *Service) replay(ctx context.Context, tx *gorm.DB, prior *model.LedgerEntry, res *PurchaseResult) error {
	if prior.TicketID != nil {
		var ticket model.Ticket
		if err := tx.WithContext(ctx).Where("ticket_id=?", *prior.TicketID).First(&ticket).Error; err != nil {
			return err
		}
		res.Ticket = &ticket
	}
	var u model.User
	if err := tx.WithContext(ctx).Where("id=?", prior.UserID).First(&u).Error; err != nil {
		return err
	}
	res.MainBalance = u.MainBalance
	res.Bonus = u.Bonus
	res.Replayed = true
	return nil
}
