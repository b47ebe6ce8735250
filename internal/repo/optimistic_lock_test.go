package repo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/padilotto/lotto-service/internal/logger"
	"github.com/padilotto/lotto-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq uint64

func testDSN() string {
	return fmt.Sprintf("file:repo%d?mode=memory&cache=shared", atomic.AddUint64(&dbSeq, 1))
}

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(testDSN()), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.User{}, &model.Ticket{}, &model.LedgerEntry{}, &model.OutboxEvent{}))
	return NewRepository(db, nil, &kafka.Writer{}, must(logger.NewLogger())), db
}

// Two writers racing on the same user: whoever writes second against the
// stale version loses, so a concurrent purchase can never overdraw.
func TestUpdateBalances_StaleVersionLoses(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	db.Create(&model.User{ID: 1, MobileNo: "08030000001",
		MainBalance: decimal.NewFromInt(100), Bonus: decimal.Zero})

	u, err := repo.GetUserForUpdate(ctx, db, 1)
	assert.NoError(t, err)

	// first writer wins
	err = repo.UpdateBalances(ctx, db, 1, decimal.NewFromInt(40), decimal.Zero, u.Version)
	assert.NoError(t, err)

	// second writer still holds the old version
	err = repo.UpdateBalances(ctx, db, 1, decimal.NewFromInt(40), decimal.Zero, u.Version)
	assert.ErrorIs(t, err, ErrConflict)

	var final model.User
	assert.NoError(t, db.First(&final, 1).Error)
	assert.True(t, final.MainBalance.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, u.Version+1, final.Version)
}

func TestLedgerEntryExists_EmptyKeyNeverMatches(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	key := "k1"
	db.Create(&model.LedgerEntry{UserID: 1, Type: model.LedgerTicketPurchase,
		Amount: decimal.NewFromInt(60), AcctBalance: decimal.NewFromInt(40),
		FundingSource: model.FundingBonus, IdempotencyKey: &key, TransDate: "3-6-2025"})

	found, entry, err := repo.LedgerEntryExists(ctx, db, 1, "k1", model.LedgerTicketPurchase)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.True(t, entry.AcctBalance.Equal(decimal.NewFromInt(40)))

	found, _, err = repo.LedgerEntryExists(ctx, db, 1, "", model.LedgerTicketPurchase)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCreateTicket_DuplicateIDRejected(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	tk := func() *model.Ticket {
		return &model.Ticket{TicketID: "SL7Q2M0XKDN", UserID: 1, GameID: "Simple-60",
			MobileNo: "08030000001", StakeAmt: decimal.NewFromInt(60),
			PotentialWinning: decimal.NewFromInt(6000), DrawTime: "11:45 PM",
			DrawDate: "6-6-2025", Status: model.TicketStatusPending}
	}
	assert.NoError(t, repo.CreateTicket(ctx, db, tk()))
	assert.Error(t, repo.CreateTicket(ctx, db, tk()))
}

func must(l *zap.SugaredLogger, err error) *zap.SugaredLogger {
	if err != nil {
		panic(err)
	}
	return l
}
