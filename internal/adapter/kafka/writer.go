package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/halbgrad/climate-anomaly-service/internal/live"
)

// Writer publishes live readings to the observations topic.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a producer for the observations topic.
func NewWriter(brokers []string, topic string, clock clockwork.Clock, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:  kafkago.TCP(brokers...),
		Topic: topic,
		// Hash keeps one station's readings on one partition so
		// consumers see them in order.
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, clock: clock, logger: logger}
}

// PublishReadings serializes and publishes readings in a single
// WriteMessages call.
func (w *Writer) PublishReadings(ctx context.Context, readings []live.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	producedAt := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(readings))
	for i := range readings {
		msg, err := serializeReading(readings[i], producedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeReading marshals a reading into a Kafka message keyed by station
// id.
func serializeReading(r live.Reading, producedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "observed_at", Value: []byte(r.Time.Format(time.RFC3339))},
			{Key: "produced_at", Value: []byte(producedAt.Format(time.RFC3339))},
		},
	}, nil
}
