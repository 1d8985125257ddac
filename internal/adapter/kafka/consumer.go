// Package kafka consumes granule archive change notifications so a running
// service picks up new or replaced elevation files without a restart.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-tile-service/internal/config"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
	"github.com/couchcryptid/flood-tile-service/internal/observability"
)

// Refresher re-scans the granule archive directory.
type Refresher interface {
	Refresh() error
}

// Clearer empties the render cache.
type Clearer interface {
	Clear()
}

// GranuleUpdate is the notification payload published by ingestion tooling
// when the granule archive changes. The granule name is advisory; a refresh
// always re-scans the whole archive.
type GranuleUpdate struct {
	Granule string `json:"granule"`
	Action  string `json:"action"`
}

// Consumer reads granule update notifications and refreshes the granule
// index and render cache in response.
type Consumer struct {
	reader  *kafkago.Reader
	store   Refresher
	cache   Clearer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsumer creates a consumer bound to the configured topic and group.
func NewConsumer(cfg *config.Config, store Refresher, cache Clearer, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topic:   cfg.KafkaTopic,
	})

	return &Consumer{
		reader:  reader,
		store:   store,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Run consumes update notifications until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("granule update consumer started",
		"topic", c.reader.Config().Topic,
		"group_id", c.reader.Config().GroupID,
	)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("granule update consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch granule update failed", "error", err)
			if !backoffOrStop(ctx, &backoff, maxBackoff) {
				return nil
			}
			continue
		}
		backoff = 200 * time.Millisecond

		if !c.processMessage(ctx, msg, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processMessage handles one notification and commits its offset. Malformed
// payloads are skipped and committed; refresh failures leave the offset
// uncommitted so the update is redelivered. Returns false if the consumer
// should stop.
func (c *Consumer) processMessage(ctx context.Context, msg kafkago.Message, backoff *time.Duration, maxBackoff time.Duration) bool {
	update, err := parseUpdate(msg)
	if err != nil {
		c.logger.Warn("skipping malformed granule update",
			"error", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		c.commit(ctx, msg)
		return ctx.Err() == nil
	}

	if err := c.apply(update); err != nil {
		c.logger.Error("granule refresh failed", "error", err, "granule", update.Granule)
		return backoffOrStop(ctx, backoff, maxBackoff)
	}

	c.commit(ctx, msg)
	return ctx.Err() == nil
}

// apply refreshes the granule index and invalidates the render cache.
// Cached tiles may have been rendered from elevation data that no longer
// exists, so the cache is cleared only after the index refresh succeeds.
func (c *Consumer) apply(update GranuleUpdate) error {
	if err := c.store.Refresh(); err != nil {
		return fmt.Errorf("refresh granule index: %w", err)
	}
	c.cache.Clear()
	c.metrics.GranuleRefreshes.Inc()
	c.logger.Info("granule archive refreshed",
		"granule", update.Granule,
		"action", update.Action,
	)
	return nil
}

// Close releases the underlying reader and its group membership.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// parseUpdate decodes a notification payload. An empty granule name is a
// generic "archive changed" signal; a non-empty one must be a valid granule
// name so garbage payloads do not trigger refresh churn.
func parseUpdate(msg kafkago.Message) (GranuleUpdate, error) {
	var update GranuleUpdate
	if err := json.Unmarshal(msg.Value, &update); err != nil {
		return GranuleUpdate{}, fmt.Errorf("parse granule update: %w", err)
	}
	if update.Granule != "" {
		if _, err := domain.ParseGranuleName(update.Granule); err != nil {
			return GranuleUpdate{}, fmt.Errorf("parse granule update: %w", err)
		}
	}
	return update, nil
}

// commit commits the message offset, logging failures without stopping.
func (c *Consumer) commit(ctx context.Context, msg kafkago.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Warn("commit granule update failed",
			"error", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the consumer should stop.
func backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
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
