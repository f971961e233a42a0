package service

import (
	"context"
	"time"

	"github.com/richardliu001/wallet-api/internal/metrics"
	"github.com/richardliu001/wallet-api/internal/repo"
	"go.uber.org/zap"
)

// OutboxRelay moves wallet events from the outbox table to Kafka. Only the
// instance holding the Redis lease publishes.
type OutboxRelay struct {
	repo      repo.RepositoryInterface
	log       *zap.SugaredLogger
	owner     string
	leaseTTL  time.Duration
	batchSize int
}

func NewOutboxRelay(r repo.RepositoryInterface, logger *zap.SugaredLogger, owner string, leaseTTL time.Duration, batchSize int) *OutboxRelay {
	return &OutboxRelay{repo: r, log: logger, owner: owner, leaseTTL: leaseTTL, batchSize: batchSize}
}

// RunOnce relays one batch and returns how many events were published.
func (o *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	held, err := o.repo.AcquirePollerLease(ctx, o.owner, o.leaseTTL)
	if err != nil {
		return 0, err
	}
	if !held {
		return 0, nil
	}
	events, err := o.repo.PollOutbox(ctx, o.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, evt := range events {
		if err := o.repo.PublishEvent(ctx, evt); err != nil {
			metrics.RecordOutboxPublish("failed")
			o.log.Errorf("publish id=%d: %v", evt.ID, err)
			// stop here so later events for the same wallet are not sent first
			break
		}
		metrics.RecordOutboxPublish("sent")
		if err := o.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			o.log.Errorf("mark processed id=%d: %v", evt.ID, err)
			break
		}
		sent++
	}
	return sent, nil
}

// Run calls RunOnce every interval until ctx is done.
func (o *OutboxRelay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := o.RunOnce(ctx)
			if err != nil {
				o.log.Errorf("relay outbox: %v", err)
				continue
			}
			if n > 0 {
				o.log.Infof("%d events sent", n)
			}
		}
	}
}
