// Package kafka consumes disease case reports from the surveillance topic
// and feeds them into the case store.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/epiforecast/outbreak-engine/internal/adapter/memstore"
	"github.com/epiforecast/outbreak-engine/internal/config"
	"github.com/epiforecast/outbreak-engine/internal/domain"
	"github.com/epiforecast/outbreak-engine/internal/observability"
)

// fetchBackoff bounds the retry delay after a failed fetch.
const (
	fetchBackoffMin = time.Second
	fetchBackoffMax = 30 * time.Second
)

// Recorder accepts ingested case reports. Implemented by memstore.Store.
type Recorder interface {
	Record(report memstore.CaseReport) error
}

// Consumer reads case-report messages from Kafka and records them. Offsets
// are committed only after a message is recorded or rejected as malformed,
// so transient store failures are redelivered.
type Consumer struct {
	reader   *kafkago.Reader
	recorder Recorder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewConsumer creates a consumer for the configured case-report topic.
func NewConsumer(cfg *config.Config, recorder Recorder, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaCasesTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.LastOffset,
	})
	return &Consumer{reader: reader, recorder: recorder, logger: logger, metrics: metrics}
}

// Run consumes until the context is cancelled. Fetch failures back off
// exponentially; malformed messages are logged, counted, and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := fetchBackoffMin

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.Error("fetch case report failed", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, fetchBackoffMax)
			continue
		}
		backoff = fetchBackoffMin

		if err := c.handle(msg); err != nil {
			// Store rejected a well-formed report (out-of-order date, for
			// example). Not retryable; commit and move on.
			c.logger.Warn("case report rejected",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			c.metrics.ValidationErrors.Inc()
		} else {
			c.metrics.IngestedReports.Inc()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("commit offset failed", "error", err)
		}
	}
}

func (c *Consumer) handle(msg kafkago.Message) error {
	report, err := decodeReport(msg)
	if err != nil {
		return err
	}
	return c.recorder.Record(report)
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// wireReport is the topic's message schema.
type wireReport struct {
	Disease  string `json:"disease"`
	Location string `json:"location"`
	Date     string `json:"date"` // YYYY-MM-DD
	Count    int    `json:"count"`
}

// decodeReport parses a case-report message into a store record.
func decodeReport(msg kafkago.Message) (memstore.CaseReport, error) {
	var wire wireReport
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		return memstore.CaseReport{}, fmt.Errorf("decode case report: %w", err)
	}

	disease, err := domain.ParseDisease(wire.Disease)
	if err != nil {
		return memstore.CaseReport{}, err
	}

	date, err := time.Parse(time.DateOnly, wire.Date)
	if err != nil {
		return memstore.CaseReport{}, &domain.ValidationError{
			Field:  "date",
			Reason: fmt.Sprintf("want YYYY-MM-DD, got %q", wire.Date),
		}
	}

	return memstore.CaseReport{
		Disease:  disease,
		Location: wire.Location,
		Date:     date,
		Count:    wire.Count,
	}, nil
}
