package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/padilotto/lotto-service/internal/logger"
	"github.com/padilotto/lotto-service/internal/model"
	"github.com/padilotto/lotto-service/internal/repo"
	"github.com/padilotto/lotto-service/internal/ticketid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestWallet_FullFlow(t *testing.T) {
	svc, db, ctx := newTestService(t, true)
	seedUser(t, db, 1, 0, 0)

	// deposit
	bal, err := svc.Deposit(ctx, 1, decimal.NewFromInt(500), "dep1")
	assert.NoError(t, err)
	assert.Equal(t, "500", bal.StringFixed(0))

	// idempotent deposit replay (same key)
	bal2, err := svc.Deposit(ctx, 1, decimal.NewFromInt(500), "dep1")
	assert.NoError(t, err)
	assert.Equal(t, "500", bal2.StringFixed(0))

	// withdraw too much
	_, err = svc.Withdraw(ctx, 1, decimal.NewFromInt(600), "w1")
	assert.ErrorIs(t, err, repo.ErrInsufficientFunds)

	// withdraw 100
	bal, err = svc.Withdraw(ctx, 1, decimal.NewFromInt(100), "w2")
	assert.NoError(t, err)
	assert.Equal(t, "400", bal.StringFixed(0))

	// winning credit
	bal, err = svc.CreditWinning(ctx, 1, decimal.NewFromInt(1000), "win1")
	assert.NoError(t, err)
	assert.Equal(t, "1400", bal.StringFixed(0))

	// balance endpoint logic (cache miss falls through to the DB)
	main, bonus, err := svc.GetBalances(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "1400", main.StringFixed(0))
	assert.Equal(t, "0", bonus.StringFixed(0))

	// history carries one row per balance-affecting operation
	hist, err := svc.GetHistory(ctx, 1, 10, time.Now().Add(-time.Hour))
	assert.NoError(t, err)
	assert.Len(t, hist, 3) // deposit + withdrawal + winning
	types := []string{hist[0].Type, hist[1].Type, hist[2].Type}
	assert.Contains(t, types, model.LedgerDeposit)
	assert.Contains(t, types, model.LedgerWithdrawal)
	assert.Contains(t, types, model.LedgerWinning)
}

func TestWallet_RejectsBadInput(t *testing.T) {
	svc, db, ctx := newTestService(t, true)
	seedUser(t, db, 1, 100, 0)

	_, err := svc.Deposit(ctx, 1, decimal.Zero, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Withdraw(ctx, 1, decimal.NewFromInt(-5), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Deposit(ctx, 99, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestWallet_WithdrawNeverTouchesBonus(t *testing.T) {
	svc, db, ctx := newTestService(t, true)
	seedUser(t, db, 1, 50, 200)

	// bonus alone could cover this, but withdrawals only draw on main
	_, err := svc.Withdraw(ctx, 1, decimal.NewFromInt(100), "w1")
	assert.ErrorIs(t, err, repo.ErrInsufficientFunds)

	var u model.User
	assert.NoError(t, db.First(&u, 1).Error)
	assert.True(t, u.Bonus.Equal(decimal.NewFromInt(200)))
}

func TestGetBalances_ServedFromCache(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(testDSN()), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.User{}, &model.Ticket{}, &model.LedgerEntry{}, &model.OutboxEvent{}))

	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("balance:1").SetVal("700")
	mock.ExpectGet("bonus:1").SetVal("25")

	log, _ := logger.NewLogger()
	repository := repo.NewRepository(db, rdb, &kafka.Writer{}, log)
	svc := New(repository, ticketid.New("SL", 9), true, log)

	// no user row exists; a cache hit must short-circuit the DB entirely
	main, bonus, err := svc.GetBalances(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, "700", main.StringFixed(0))
	assert.Equal(t, "25", bonus.StringFixed(0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWallet_CacheRefreshOnlyAfterCommit(t *testing.T) {
	svc, db, ctx := newTestService(t, true)
	seedUser(t, db, 1, 50, 0)
	log, _ := logger.NewLogger()

	spy := &cacheSpy{RepositoryInterface: svc.Repo()}
	spied := New(spy, ticketid.New("SL", 9), true, log)

	// a rejected withdrawal never reaches the cache
	_, err := spied.Withdraw(ctx, 1, decimal.NewFromInt(500), "w1")
	assert.ErrorIs(t, err, repo.ErrInsufficientFunds)
	assert.Zero(t, spy.calls)

	// a committed deposit refreshes it with the settled balance
	bal, err := spied.Deposit(ctx, 1, decimal.NewFromInt(200), "dep1")
	assert.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
	assert.True(t, spy.main.Equal(bal))

	// replaying the same key changes nothing, so the cache is left alone
	_, err = spied.Deposit(ctx, 1, decimal.NewFromInt(200), "dep1")
	assert.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
}

func TestGetTickets_NewestFirst(t *testing.T) {
	svc, db, ctx := newTestService(t, true)
	seedUser(t, db, 1, 1000, 0)

	for _, stake := range []int64{50, 60, 70} {
		_, err := svc.Purchase(ctx, purchaseInput(stake))
		assert.NoError(t, err)
	}

	tickets, err := svc.GetTickets(ctx, 1, 2)
	assert.NoError(t, err)
	assert.Len(t, tickets, 2)
}
