// Package kafka consumes raw tweets from the intake topic and appends them
// to the message store, so the realtime window queries see fresh data.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/tweet-geoparser/internal/config"
	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/observability"
)

// MessageWriter persists an intake message.
type MessageWriter interface {
	InsertMessage(ctx context.Context, msg domain.Message) error
}

// Reader consumes the tweets topic and writes each message to the store.
type Reader struct {
	reader  *kafkago.Reader
	writer  MessageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a consumer for the configured tweets topic.
func NewReader(cfg *config.Config, writer MessageWriter, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTweetsTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Reader{reader: r, writer: writer, logger: logger, metrics: metrics}
}

// Run consumes until the context is cancelled. Malformed payloads are
// skipped and counted; store failures leave the offset uncommitted so the
// message is redelivered.
func (r *Reader) Run(ctx context.Context) error {
	for {
		fetched, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch intake message: %w", err)
		}
		r.metrics.IntakeMessages.Inc()

		msg, err := parseTweet(fetched.Value)
		if err != nil {
			r.metrics.IntakeInvalid.Inc()
			r.logger.Warn("skipping malformed intake payload",
				"error", err,
				"partition", fetched.Partition,
				"offset", fetched.Offset,
			)
			if err := r.reader.CommitMessages(ctx, fetched); err != nil {
				r.logger.Warn("commit offset failed", "error", err)
			}
			continue
		}

		if err := r.writer.InsertMessage(ctx, msg); err != nil {
			r.logger.Error("store intake message failed", "error", err, "id", msg.ID)
			continue
		}
		if err := r.reader.CommitMessages(ctx, fetched); err != nil {
			r.logger.Warn("commit offset failed", "error", err)
		}
	}
}

// Close releases the underlying consumer.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// parseTweet deserializes an intake payload into a Message and validates
// the required fields.
func parseTweet(value []byte) (domain.Message, error) {
	var msg domain.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("parse tweet: %w", err)
	}
	if !msg.Valid() {
		return domain.Message{}, errors.New("tweet missing id, language, or timestamp")
	}
	return msg, nil
}
