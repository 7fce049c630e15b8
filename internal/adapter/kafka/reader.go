package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/halbgrad/climate-anomaly-service/internal/live"
)

// Reader consumes the observations topic as part of a consumer group.
// It implements live.Source.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the observations topic.
func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks until the next message arrives. Offsets are not advanced
// until Commit is called.
func (r *Reader) Fetch(ctx context.Context) (live.Message, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return live.Message{}, err
	}
	return mapMessage(msg), nil
}

// Commit acknowledges one handled message.
func (r *Reader) Commit(ctx context.Context, msg live.Message) error {
	return r.reader.CommitMessages(ctx, kafkago.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into the transport-neutral form the
// live consumer handles.
func mapMessage(msg kafkago.Message) live.Message {
	return live.Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Time:      msg.Time,
	}
}
