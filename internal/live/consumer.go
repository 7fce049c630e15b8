package live

import (
	"context"
	"log/slog"
	"time"

	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

// Message is one raw message from the observations feed.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Time      time.Time
}

// Source yields raw feed messages. Fetch blocks until a message arrives or
// the context ends; Commit acknowledges one handled message.
type Source interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
}

// Consumer runs the fetch-decode-store loop for the live feed. Poison
// messages are counted, logged, committed, and skipped so one bad payload
// cannot wedge the partition.
type Consumer struct {
	source  Source
	store   *Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsumer creates a consumer feeding the given store.
func NewConsumer(source Source, store *Store, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	return &Consumer{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Run consumes the feed until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("live consumer started")
	c.metrics.ConsumerRunning.Set(1)
	defer c.metrics.ConsumerRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("live consumer stopping", "reason", ctx.Err())
			return nil
		default:
		}

		msg, err := c.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("live consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch live message failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		reading, err := DecodeReading(msg.Value)
		if err != nil {
			c.logger.Warn("skipping undecodable live message",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			c.metrics.LivePoisonMessages.Inc()
			c.commit(ctx, msg)
			continue
		}

		c.store.Put(reading)
		c.metrics.LiveMessagesConsumed.Inc()
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg Message) {
	if err := c.source.Commit(ctx, msg); err != nil {
		c.logger.Warn("commit live message failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
