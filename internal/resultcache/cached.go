// Package resultcache memoizes resolutions per H3 cell so edit events can drop
// every cached answer around the edited roads.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/street-resolver/internal/cache"
	"github.com/mohammed-shakir/street-resolver/internal/cache/keys"
	"github.com/mohammed-shakir/street-resolver/internal/cellmap"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/core/observability"
	mylog "github.com/mohammed-shakir/street-resolver/internal/logger"
	"github.com/mohammed-shakir/street-resolver/internal/resolver"
)

type Config struct {
	TTL       time.Duration
	OpTimeout time.Duration
}

// Cached wraps a resolver. Store failures degrade to an uncached resolution.
type Cached struct {
	logger *slog.Logger
	next   resolver.Interface
	store  cache.Store
	cells  *cellmap.Mapper
	cfg    Config
}

var _ resolver.Interface = (*Cached)(nil)

func New(logger *slog.Logger, next resolver.Interface, store cache.Store, cells *cellmap.Mapper, cfg Config) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &Cached{logger: logger, next: next, store: store, cells: cells, cfg: cfg}
}

// returns a context bounded by the op timeout, detached from request cancellation
func (c *Cached) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.cfg.OpTimeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, c.cfg.OpTimeout)
}

func (c *Cached) Resolve(ctx context.Context, q model.RawQuery) (resolver.Result, error) {
	if err := resolver.Validate(q); err != nil {
		return resolver.Result{}, err
	}
	cell, err := c.cells.CellFor(q.Point)
	if err != nil {
		// Validate already checked the point, so this is an H3 failure
		c.logger.WarnContext(ctx, "cache cell mapping failed", "err", err)
		return c.next.Resolve(ctx, q)
	}
	key := keys.Key(cell, q)

	if res, ok := c.lookup(ctx, key); ok {
		observability.IncCacheHit()
		c.logger.DebugContext(mylog.WithCacheStatus(ctx, "hit"), "cache hit", "key", key)
		return res, nil
	}

	res, err := c.next.Resolve(mylog.WithCacheStatus(ctx, "miss"), q)
	if err != nil {
		return res, err
	}
	if cacheable(res) {
		c.fill(ctx, key, res)
	}
	return res, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (resolver.Result, bool) {
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, ok, err := c.store.Get(opCtx, key)
	if err != nil {
		observability.IncCacheError()
		c.logger.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		return resolver.Result{}, false
	}
	if !ok {
		observability.IncCacheMiss()
		return resolver.Result{}, false
	}
	var res resolver.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		observability.IncCacheError()
		c.logger.WarnContext(ctx, "cached result undecodable", "key", key, "err", err)
		return resolver.Result{}, false
	}
	return res, true
}

func (c *Cached) fill(ctx context.Context, key string, res resolver.Result) {
	b, err := json.Marshal(res)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
		return
	}
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.store.Set(opCtx, key, b, c.cfg.TTL); err != nil {
		observability.IncCacheError()
		c.logger.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
}

// Unmatched results produced while an upstream was failing are not stored,
// otherwise an outage would be served from cache until the TTL ran out.
func cacheable(res resolver.Result) bool {
	if res.Matched {
		return true
	}
	for _, a := range res.Meta.Attempts {
		if a.Error != "" {
			return false
		}
	}
	return true
}

// Invalidate drops every cached resolution whose query point falls in one of cells.
func Invalidate(ctx context.Context, store cache.Store, cells model.Cells) (int, error) {
	total := 0
	var errs []error
	for _, cell := range cells {
		n, err := store.DelPrefix(ctx, keys.CellPrefix(cell))
		total += n
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
