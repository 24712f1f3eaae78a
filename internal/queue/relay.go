package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Outbox is the stored mail queue the relay drains.
type Outbox interface {
	ListPending(ctx context.Context, limit int) ([]model.MailMessage, error)
	MarkRelayed(ctx context.Context, id uint64, at time.Time) error
}

// Publisher delivers one envelope to the broker.
type Publisher interface {
	PublishMail(ctx context.Context, env MailEnvelope) error
}

// Relay moves committed outbox rows to the broker.  A row is marked relayed
// only after the broker accepted it, so a crash between the two steps can
// publish the same mail twice but never loses one.
type Relay struct {
	outbox   Outbox
	pub      Publisher
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewRelay(outbox Outbox, pub Publisher, interval time.Duration, batch int, log *zap.Logger) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batch < 1 {
		batch = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{outbox: outbox, pub: pub, interval: interval, batch: batch, log: log}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("mail relay pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// RelayOnce publishes up to one batch and returns how many rows were relayed.
// It stops at the first publish failure and leaves the rest for the next pass.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.ListPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range pending {
		if err := r.pub.PublishMail(ctx, EnvelopeFor(m)); err != nil {
			return n, err
		}
		if err := r.outbox.MarkRelayed(ctx, m.ID, time.Now().UTC()); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		r.log.Info("mail relayed", zap.Int("count", n))
	}
	return n, nil
}
