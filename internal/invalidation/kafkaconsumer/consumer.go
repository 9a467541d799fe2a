// Package kafkaconsumer applies road edit events from Kafka to the
// resolution cache.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/street-resolver/internal/cache"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	obs "github.com/mohammed-shakir/street-resolver/internal/core/observability"
	"github.com/mohammed-shakir/street-resolver/internal/invalidation"
	mylog "github.com/mohammed-shakir/street-resolver/internal/logger"
	"github.com/mohammed-shakir/street-resolver/internal/resultcache"
)

type CellMapper interface {
	CellsAround(bbox model.BBox, k int) (model.Cells, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	store  cache.Store
	mapper CellMapper
	seen   *versionDedupe
	zlog   *zerolog.Logger
}

func New(cfg Config, logger *slog.Logger, store cache.Store, mapper CellMapper) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	base := mylog.WithComponent(context.Background(), "kafka_consumer")
	zl := mylog.Build(mylog.Config{
		Level:     cfg.LogLevel,
		Service:   "street-resolver",
		Component: "kafka_consumer",
	}, nil)
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		store:  store,
		mapper: mapper,
		seen:   newVersionDedupe(cfg.DedupeSize),
		zlog:   mylog.FromContext(base, &zl),
	}
}

// consumes edit events from kafka until ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	if c.store == nil || c.mapper == nil {
		return errors.New("kafkaconsumer: missing dependencies (store/mapper)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

// ProcessOne applies one message. Malformed events are logged and skipped so
// they cannot block the partition; store failures are returned for redelivery.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.skip(ctx, msg, "decode", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		c.skip(ctx, msg, "validate", err)
		return nil
	}

	dedupeKey := ""
	if ev.WayID != 0 && ev.Changeset != 0 {
		dedupeKey = strconv.FormatInt(ev.WayID, 10)
		if !c.seen.shouldApply(dedupeKey, ev.Changeset) {
			c.logger.Debug("stale edit event skipped", "way_id", ev.WayID, "changeset", ev.Changeset)
			return nil
		}
	}

	cells, err := c.mapper.CellsAround(ev.BBox.Model(), c.cfg.RingK)
	if err != nil {
		c.skip(ctx, msg, "cells", err)
		return nil
	}

	n, err := resultcache.Invalidate(ctx, c.store, cells)
	if err != nil {
		obs.ObserveInvalidation(n, err)
		if dedupeKey != "" {
			c.seen.forget(dedupeKey)
		}
		mylog.FromContext(ctx, c.zlog).Error().
			Str("kind", "cache_del").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Int("cells", len(cells)).
			Err(err).
			Msg("kafka error")
		return fmt.Errorf("invalidate %d cells: %w", len(cells), err)
	}

	obs.ObserveInvalidation(n, nil)
	mylog.FromContext(ctx, c.zlog).Info().
		Str("event", "invalidation").
		Str("op", ev.Op).
		Int64("way_id", ev.WayID).
		Int("cells", len(cells)).Int("keys", n).
		Msg("invalidated keys")
	return nil
}

func (c *Consumer) skip(ctx context.Context, msg *sarama.ConsumerMessage, kind string, err error) {
	obs.ObserveInvalidation(0, err)
	mylog.FromContext(ctx, c.zlog).Warn().
		Str("kind", kind).
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Err(err).
		Msg("edit event skipped")
}
