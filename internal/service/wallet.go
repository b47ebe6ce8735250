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

// Deposit credits the main balance. Called by the payment-gateway webhook
// consumer once a checkout settles.
func (s *Service) Deposit(ctx context.Context, userID uint64, amt decimal.Decimal, key string) (decimal.Decimal, error) {
	return s.credit(ctx, userID, amt, key, model.LedgerDeposit, "Deposit")
}

// CreditWinning credits the main balance for a won ticket. Invoked by the
// draw settlement process.
func (s *Service) CreditWinning(ctx context.Context, userID uint64, amt decimal.Decimal, key string) (decimal.Decimal, error) {
	return s.credit(ctx, userID, amt, key, model.LedgerWinning, "WinningCredited")
}

func (s *Service) credit(ctx context.Context, userID uint64, amt decimal.Decimal, key, entryType, eventType string) (decimal.Decimal, error) {
	if amt.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	var finalBal, finalBonus decimal.Decimal
	var replayed bool
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		existed, prior, err := s.repo.LedgerEntryExists(ctx, tx, userID, key, entryType)
		if err != nil {
			return err
		}
		if existed {
			finalBal = prior.AcctBalance
			replayed = true
			return nil
		}

		u, err := s.repo.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		newBal := u.MainBalance.Add(amt)
		if err := s.repo.UpdateBalances(ctx, tx, userID, newBal, u.Bonus, u.Version); err != nil {
			return err
		}
		now := time.Now()
		entry := &model.LedgerEntry{
			UserID: userID, Type: entryType, Amount: amt,
			AcctBalance: newBal, FundingSource: model.FundingMain,
			TimeStamp: now.UnixMilli(), TransDate: draws.TransDate(now),
		}
		if key != "" {
			k := key
			entry.IdempotencyKey = &k
		}
		if err := s.repo.CreateLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{"user_id": userID, "amount": amt, "main_balance": newBal})
		evt := &model.OutboxEvent{
			Aggregate: "Wallet", AggregateID: userID, EventType: eventType, Payload: string(payload),
		}
		if err := s.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
			return err
		}
		finalBal = newBal
		finalBonus = u.Bonus
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	// cache refresh happens after commit; an aborted credit must not surface
	// in Redis
	if !replayed {
		if err := s.repo.CacheBalances(ctx, userID, finalBal, finalBonus); err != nil {
			s.log.Warn(err)
		}
	}
	return finalBal, nil
}

// Withdraw debits the main balance only; bonus money is not withdrawable.
func (s *Service) Withdraw(ctx context.Context, userID uint64, amt decimal.Decimal, key string) (decimal.Decimal, error) {
	if amt.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	var finalBal, finalBonus decimal.Decimal
	var replayed bool
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		existed, prior, err := s.repo.LedgerEntryExists(ctx, tx, userID, key, model.LedgerWithdrawal)
		if err != nil {
			return err
		}
		if existed {
			finalBal = prior.AcctBalance
			replayed = true
			return nil
		}
		u, err := s.repo.GetUserForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if u.MainBalance.LessThan(amt) {
			return repo.ErrInsufficientFunds
		}
		newBal := u.MainBalance.Sub(amt)
		if err := s.repo.UpdateBalances(ctx, tx, userID, newBal, u.Bonus, u.Version); err != nil {
			return err
		}
		now := time.Now()
		entry := &model.LedgerEntry{
			UserID: userID, Type: model.LedgerWithdrawal, Amount: amt,
			AcctBalance: newBal, FundingSource: model.FundingMain,
			TimeStamp: now.UnixMilli(), TransDate: draws.TransDate(now),
		}
		if key != "" {
			k := key
			entry.IdempotencyKey = &k
		}
		if err := s.repo.CreateLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{"user_id": userID, "amount": amt, "main_balance": newBal})
		evt := &model.OutboxEvent{
			Aggregate: "Wallet", AggregateID: userID, EventType: "Withdraw", Payload: string(payload),
		}
		if err := s.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
			return err
		}
		finalBal = newBal
		finalBonus = u.Bonus
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !replayed {
		if err := s.repo.CacheBalances(ctx, userID, finalBal, finalBonus); err != nil {
			s.log.Warn(err)
		}
	}
	return finalBal, nil
}

// GetBalances returns the main balance and bonus, cache first.
func (s *Service) GetBalances(ctx context.Context, userID uint64) (decimal.Decimal, decimal.Decimal, error) {
	bal, bonus, err := s.repo.GetCachedBalances(ctx, userID)
	if err == nil {
		return bal, bonus, nil
	}
	var u model.User
	if err := s.repo.DB(ctx).Where("id=?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, decimal.Zero, err
	}
	_ = s.repo.CacheBalances(ctx, userID, u.MainBalance, u.Bonus)
	return u.MainBalance, u.Bonus, nil
}

// GetProfile fetches the authoritative user row.
func (s *Service) GetProfile(ctx context.Context, userID uint64) (*model.User, error) {
	var u model.User
	if err := s.repo.DB(ctx).Where("id=?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetHistory fetches recent ledger entries.
func (s *Service) GetHistory(ctx context.Context, userID uint64, limit int, since time.Time) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := s.repo.DB(ctx).
		Where("user_id=? AND created_at>=?", userID, since).
		Order("created_at asc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// GetTickets lists the user's tickets, newest first.
func (s *Service) GetTickets(ctx context.Context, userID uint64, limit int) ([]model.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	var tickets []model.Ticket
	err := s.repo.DB(ctx).
		Where("user_id=?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&tickets).Error
	return tickets, err
}
