package kafkaconsumer

import (
	"reflect"
	"testing"

	"github.com/mohammed-shakir/street-resolver/internal/core/config"
)

func TestConfigFrom_UsesServiceSettings(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_TOPIC", "edits")
	t.Setenv("KAFKA_GROUP_ID", "g1")
	t.Setenv("INVALIDATION_RING_K", "2")

	svc := config.FromEnv()
	cfg := ConfigFrom(svc.Invalidation, "debug")
	if !reflect.DeepEqual(cfg.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("brokers=%v", cfg.Brokers)
	}
	if cfg.Topic != "edits" || cfg.GroupID != "g1" || cfg.RingK != 2 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DedupeSize <= 0 || cfg.SessionTimeout <= 0 {
		t.Fatalf("consumer defaults missing: %+v", cfg)
	}
}

func TestConfigFrom_DefaultsLogLevelAndClampsRing(t *testing.T) {
	cfg := ConfigFrom(config.InvalidationCfg{Topic: "t", RingK: -1}, "")
	if cfg.LogLevel != "info" || cfg.RingK != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
