// Package config reads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Topic   string
	Brokers []string
	GroupID string
	RingK   int
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	MetricsEnabled bool

	OverpassEndpoints []string
	OverpassTimeout   time.Duration

	SearchRadiusM   float64
	NearRadiusM     float64
	WideRadiusM     float64
	MatchThreshold  float64
	ProximityWeight float64

	CacheBackend    string
	CacheTTL        time.Duration
	CacheMemorySize int
	CacheOpTimeout  time.Duration
	CacheH3Res      int
	RedisAddr       string

	Invalidation InvalidationCfg
}

func FromEnv() Config {
	res := getint("CACHE_H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}
	backend := strings.ToLower(getenv("CACHE_BACKEND", "memory"))
	switch backend {
	case "memory", "redis", "none":
	default:
		backend = "memory"
	}
	ringK := getint("INVALIDATION_RING_K", 5)
	if ringK < 0 {
		ringK = 0
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		MetricsEnabled: getbool("METRICS_ENABLED", true),

		OverpassEndpoints: splitCSV(getenv("OVERPASS_ENDPOINTS", "")),
		OverpassTimeout:   getduration("OVERPASS_TIMEOUT", 25*time.Second),

		SearchRadiusM:   getfloat("SEARCH_RADIUS_M", 1500),
		NearRadiusM:     getfloat("NEAR_RADIUS_M", 400),
		WideRadiusM:     getfloat("WIDE_RADIUS_M", 2500),
		MatchThreshold:  getfloat("MATCH_THRESHOLD", 0.4),
		ProximityWeight: getfloat("PROXIMITY_WEIGHT", 0.15),

		CacheBackend:    backend,
		CacheTTL:        getduration("CACHE_TTL", 10*time.Minute),
		CacheMemorySize: getint("CACHE_MEMORY_SIZE", 4096),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheH3Res:      res,
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "osm-edits"),
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			GroupID: getenv("KAFKA_GROUP_ID", "resolver-invalidator"),
			RingK:   ringK,
		},
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
