package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	occurred := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	rec := domain.IncidentRecord{
		Title:      "Pileup near Katraj Chowk",
		URL:        "https://news.example/katraj",
		Reason:     domain.ReasonCrash,
		OccurredAt: &occurred,
		Source:     "news_scraper",
		Status:     domain.StatusUnassigned,
		Priority:   domain.PriorityHigh,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte(rec.Checksum()), msg.Key)
	assert.Contains(t, string(msg.Value), `"reason":"crash"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "reason", msg.Headers[0].Key)
	assert.Equal(t, []byte("crash"), msg.Headers[0].Value)
	assert.Equal(t, "source", msg.Headers[1].Key)
	assert.Equal(t, []byte("news_scraper"), msg.Headers[1].Value)
}

func TestSerializeToMessage_StableKey(t *testing.T) {
	rec := domain.IncidentRecord{Title: "Flooded underpass", URL: "https://news.example/a"}

	first, err := serializeToMessage(rec)
	require.NoError(t, err)

	// A republished copy with a different summary keeps the same key.
	rec.Summary = "updated details"
	second, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
}

func TestDecodeArticle(t *testing.T) {
	t.Run("object source", func(t *testing.T) {
		msg := kafkago.Message{Value: []byte(`{
			"title": "Crash near Swargate",
			"url": "https://news.example/swargate",
			"publishedAt": "2026-03-10T08:30:00Z",
			"source": {"name": "Pune Mirror"}
		}`)}

		article, err := decodeArticle(msg)
		require.NoError(t, err)
		assert.Equal(t, "Crash near Swargate", article.Title)
		assert.Equal(t, "Pune Mirror", article.Source.Name)
		require.NotNil(t, article.OccurredAt())
	})

	t.Run("string source", func(t *testing.T) {
		msg := kafkago.Message{Value: []byte(`{"title":"t","source":"mobile_upload"}`)}
		article, err := decodeArticle(msg)
		require.NoError(t, err)
		assert.Equal(t, "mobile_upload", article.Source.Name)
	})

	t.Run("source falls back to header", func(t *testing.T) {
		msg := kafkago.Message{
			Value:   []byte(`{"title":"t"}`),
			Headers: []kafkago.Header{{Key: "source", Value: []byte("traffic_authority")}},
		}
		article, err := decodeArticle(msg)
		require.NoError(t, err)
		assert.Equal(t, "traffic_authority", article.Source.Name)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := decodeArticle(kafkago.Message{Value: []byte(`{not json`)})
		assert.Error(t, err)
	})
}
