package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Writer produces canonical incident records to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the canonical record topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Store serializes and publishes a batch of records in a single
// WriteMessages call for efficiency.
func (w *Writer) Store(ctx context.Context, records []domain.IncidentRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
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

// serializeToMessage marshals an IncidentRecord into a Kafka message keyed
// by its content checksum, so republished events land on the same partition.
func serializeToMessage(rec domain.IncidentRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize incident record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Checksum()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "reason", Value: []byte(rec.Reason)},
			{Key: "source", Value: []byte(rec.Source)},
		},
	}, nil
}
