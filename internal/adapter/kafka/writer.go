package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/config"
	"github.com/couchcryptid/merra2-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces profiles to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes profiles to the sink topic in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, profiles []domain.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(profiles))
	for i := range profiles {
		msg, err := serializeToMessage(profiles[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d profiles: %w", len(msgs), err)
	}
	w.logger.Debug("profiles published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Profile into a Kafka message keyed by its ID.
func serializeToMessage(p domain.Profile) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize profile: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "variable", Value: []byte(p.Variable)},
			{Key: "method", Value: []byte(p.Method)},
			{Key: "processed_at", Value: []byte(p.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
