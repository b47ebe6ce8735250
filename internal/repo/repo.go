package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/padilotto/lotto-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned when neither pool covers the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrConflict means a concurrent writer bumped the user's version first.
var ErrConflict = errors.New("concurrent balance update, try again")

// RepositoryInterface restricts Repo methods for unit-test mocks.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	CreateUser(ctx context.Context, tx *gorm.DB, u *model.User) error
	GetUserForUpdate(ctx context.Context, tx *gorm.DB, userID uint64) (*model.User, error)
	UpdateBalances(ctx context.Context, tx *gorm.DB, userID uint64, mainBalance, bonus decimal.Decimal, oldVersion uint64) error
	CreateTicket(ctx context.Context, tx *gorm.DB, t *model.Ticket) error
	CreateLedgerEntry(ctx context.Context, tx *gorm.DB, e *model.LedgerEntry) error
	LedgerEntryExists(ctx context.Context, tx *gorm.DB, userID uint64, idemKey, entryType string) (bool, *model.LedgerEntry, error)
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	CacheBalances(ctx context.Context, userID uint64, mainBalance, bonus decimal.Decimal) error
	GetCachedBalances(ctx context.Context, userID uint64) (decimal.Decimal, decimal.Decimal, error)
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// CreateUser inserts a user row.
func (r *Repository) CreateUser(ctx context.Context, tx *gorm.DB, u *model.User) error {
	return tx.WithContext(ctx).Create(u).Error
}

// GetUserForUpdate locks the user row and returns the authoritative
// balances. The purchase flow must base its funding decision on this read,
// never on anything client-supplied.
func (r *Repository) GetUserForUpdate(ctx context.Context, tx *gorm.DB, userID uint64) (*model.User, error) {
	var u model.User
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateBalances writes both pools with an optimistic lock on version.
func (r *Repository) UpdateBalances(ctx context.Context, tx *gorm.DB, userID uint64, mainBalance, bonus decimal.Decimal, oldVersion uint64) error {
	res := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND version = ?", userID, oldVersion).
		Updates(map[string]interface{}{
			"main_balance": mainBalance,
			"bonus":        bonus,
			"version":      oldVersion + 1,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CreateTicket inserts the ticket row; the unique index on ticket_id is the
// last line of defense against an ID collision.
func (r *Repository) CreateTicket(ctx context.Context, tx *gorm.DB, t *model.Ticket) error {
	return tx.WithContext(ctx).Create(t).Error
}

// CreateLedgerEntry appends one ledger row.
func (r *Repository) CreateLedgerEntry(ctx context.Context, tx *gorm.DB, e *model.LedgerEntry) error {
	return tx.WithContext(ctx).Create(e).Error
}

// LedgerEntryExists checks duplicate by idem key. An empty key disables the
// check, which leaves double-submission possible for key-less callers.
func (r *Repository) LedgerEntryExists(ctx context.Context, tx *gorm.DB, userID uint64, idemKey, entryType string) (bool, *model.LedgerEntry, error) {
	if idemKey == "" {
		return false, nil, nil
	}
	var e model.LedgerEntry
	err := tx.WithContext(ctx).Where("user_id=? AND idempotency_key=? AND type=?", userID, idemKey, entryType).First(&e).Error
	if err == nil {
		return true, &e, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed=false").Order("created_at").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id=?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.AggregateID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

// CacheBalances writes both pools to Redis.
func (r *Repository) CacheBalances(ctx context.Context, userID uint64, mainBalance, bonus decimal.Decimal) error {
	if err := r.rdb.Set(ctx, fmt.Sprintf("balance:%d", userID), mainBalance.String(), 5*time.Minute).Err(); err != nil {
		return err
	}
	return r.rdb.Set(ctx, fmt.Sprintf("bonus:%d", userID), bonus.String(), 5*time.Minute).Err()
}

// GetCachedBalances reads both pools from Redis.
func (r *Repository) GetCachedBalances(ctx context.Context, userID uint64) (decimal.Decimal, decimal.Decimal, error) {
	balStr, err := r.rdb.Get(ctx, fmt.Sprintf("balance:%d", userID)).Result()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	bonusStr, err := r.rdb.Get(ctx, fmt.Sprintf("bonus:%d", userID)).Result()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	bal, err := decimal.NewFromString(balStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	bonus, err := decimal.NewFromString(bonusStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return bal, bonus, nil
}
