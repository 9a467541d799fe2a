package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	RingK               int
	DedupeSize          int
	LogLevel            string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

// ConfigFrom fills the consumer settings from the service config, which owns
// the KAFKA_* and INVALIDATION_* variables.
func ConfigFrom(inv config.InvalidationCfg, logLevel string) Config {
	if logLevel == "" {
		logLevel = "info"
	}
	return Config{
		Brokers:             inv.Brokers,
		Topic:               inv.Topic,
		GroupID:             inv.GroupID,
		RingK:               max(inv.RingK, 0),
		DedupeSize:          4096,
		LogLevel:            logLevel,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: false,
	}
}
