package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/wallet-api/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrWalletNotFound is returned when no row matches the wallet id.
var ErrWalletNotFound = errors.New("wallet not found")

const pollerLeaseKey = "wallet-outbox:poller"

// EventWriter is the subset of *kafka.Writer used by the repository.
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// RepositoryInterface restricts Repo methods (keeps the service mockable).
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	Ping(ctx context.Context) error
	GetWallet(ctx context.Context, tx *gorm.DB, walletID uint64) (*model.Wallet, error)
	CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	UpdateBalance(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	DeleteWallet(ctx context.Context, tx *gorm.DB, walletID uint64) error
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	AcquirePollerLease(ctx context.Context, owner string, ttl time.Duration) (bool, error)
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer EventWriter
	log    *zap.SugaredLogger
}

// NewRepository constructs repo. rdb and w may be nil for processes that
// never relay the outbox.
func NewRepository(db *gorm.DB, rdb *redis.Client, w EventWriter, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetWallet reads one wallet row.
func (r *Repository) GetWallet(ctx context.Context, tx *gorm.DB, walletID uint64) (*model.Wallet, error) {
	var w model.Wallet
	err := tx.WithContext(ctx).Where("id_wallet = ?", walletID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet %d: %w", walletID, err)
	}
	return &w, nil
}

// CreateWallet inserts a row and fills in the generated id.
func (r *Repository) CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

// UpdateBalance writes w.Balance. No version check: concurrent writers
// to the same wallet can overwrite each other.
func (r *Repository) UpdateBalance(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id_wallet = ?", w.IDWallet).
		Update("balance", w.Balance)
	if res.Error != nil {
		return fmt.Errorf("update wallet %d: %w", w.IDWallet, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// DeleteWallet removes the row.
func (r *Repository) DeleteWallet(ctx context.Context, tx *gorm.DB, walletID uint64) error {
	res := tx.WithContext(ctx).Where("id_wallet = ?", walletID).Delete(&model.Wallet{})
	if res.Error != nil {
		return fmt.Errorf("delete wallet %d: %w", walletID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("id").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka, keyed by wallet id so a wallet's events stay ordered.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.AggregateID)),
		Value: []byte(evt.Payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "event_id", Value: []byte(fmt.Sprintf("%d", evt.ID))},
		},
		Time: evt.CreatedAt,
	}
	return r.writer.WriteMessages(ctx, msg)
}

// AcquirePollerLease takes or renews the single-poller lease in Redis.
// It reports false while another owner holds it.
func (r *Repository) AcquirePollerLease(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, pollerLeaseKey, owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	cur, err := r.rdb.Get(ctx, pollerLeaseKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cur != owner {
		r.log.Debugw("poller lease held elsewhere", "holder", cur)
		return false, nil
	}
	if err := r.rdb.PExpire(ctx, pollerLeaseKey, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}
