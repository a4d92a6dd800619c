package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// drainTimeout bounds how long a batch waits for followers once the first
// message has arrived.
const drainTimeout = 250 * time.Millisecond

// Reader consumes raw article JSON from the source topic.
// It implements pipeline.ArticleSource.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the raw article topic.
func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	return &Reader{reader: r, logger: logger}
}

// FetchBatch blocks for the first article, then drains up to batchSize
// messages without waiting on a quiet topic. Messages that fail to decode
// are logged and skipped; their offsets still advance so a poison message
// cannot wedge the consumer group.
func (r *Reader) FetchBatch(ctx context.Context, batchSize int) ([]domain.RawArticle, error) {
	first, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}

	messages := []kafkago.Message{first}
	for len(messages) < batchSize {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		msg, err := r.reader.ReadMessage(drainCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if ctx.Err() != nil {
				break
			}
			return nil, err
		}
		messages = append(messages, msg)
	}

	articles := make([]domain.RawArticle, 0, len(messages))
	for _, msg := range messages {
		article, err := decodeArticle(msg)
		if err != nil {
			r.logger.Warn("skipping undecodable article message",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// decodeArticle unmarshals a message into a RawArticle, filling the source
// from the message header when the payload itself carries none.
func decodeArticle(msg kafkago.Message) (domain.RawArticle, error) {
	var article domain.RawArticle
	if err := json.Unmarshal(msg.Value, &article); err != nil {
		return domain.RawArticle{}, err
	}
	if article.Source.Name == "" {
		for _, h := range msg.Headers {
			if h.Key == "source" {
				article.Source.Name = string(h.Value)
			}
		}
	}
	return article, nil
}
