// Package retriever fetches candidate ways around a point using progressively
// wider fallback tiers.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/street-resolver/internal/canon"
	"github.com/mohammed-shakir/street-resolver/internal/core/executor"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/core/overpass"
	mylog "github.com/mohammed-shakir/street-resolver/internal/logger"
)

type Config struct {
	Radius     float64
	NearRadius float64
	WideRadius float64
	MaxTokens  int
	TimeoutSec int
}

func DefaultConfig() Config {
	return Config{Radius: 1500, NearRadius: 400, WideRadius: 2500, MaxTokens: 3, TimeoutSec: 25}
}

// Attempt records what one tier produced.
type Attempt struct {
	Tier       int     `json:"tier"`
	Radius     float64 `json:"radius"`
	Candidates int     `json:"candidates"`
	Error      string  `json:"error,omitempty"`
}

// Retrieval is the first non-empty tier result. Tier is 0 and Candidates is
// empty when every tier came back empty or unavailable.
type Retrieval struct {
	Candidates []model.Candidate
	Tier       int
	Radius     float64
	Attempts   []Attempt
}

type Interface interface {
	Retrieve(ctx context.Context, p model.Point, target string) (Retrieval, error)
}

type strategy struct {
	tier   int
	radius float64
	build  func(p model.Point, target string) overpass.Query
}

type Retriever struct {
	logger *slog.Logger
	exec   executor.Interface
	tiers  []strategy
}

var _ Interface = (*Retriever)(nil)

func New(logger *slog.Logger, exec executor.Interface, cfg Config) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Radius <= 0 {
		cfg.Radius = def.Radius
	}
	if cfg.NearRadius <= 0 {
		cfg.NearRadius = def.NearRadius
	}
	if cfg.WideRadius <= 0 {
		cfg.WideRadius = def.WideRadius
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}

	return &Retriever{
		logger: logger,
		exec:   exec,
		tiers: []strategy{
			{tier: 1, radius: cfg.Radius, build: func(p model.Point, target string) overpass.Query {
				return overpass.Query{
					Center:     p,
					Radius:     cfg.Radius,
					NameTokens: canon.Tokens(target, cfg.MaxTokens),
					NearRadius: min(cfg.NearRadius, cfg.Radius),
					TimeoutSec: cfg.TimeoutSec,
				}
			}},
			{tier: 2, radius: cfg.Radius, build: func(p model.Point, _ string) overpass.Query {
				return overpass.Query{Center: p, Radius: cfg.Radius, TimeoutSec: cfg.TimeoutSec}
			}},
			{tier: 3, radius: cfg.WideRadius, build: func(p model.Point, _ string) overpass.Query {
				return overpass.Query{Center: p, Radius: cfg.WideRadius, TimeoutSec: cfg.TimeoutSec}
			}},
		},
	}
}

// Tiers reports how many retrieval tiers a single Retrieve may run.
func (r *Retriever) Tiers() int { return len(r.tiers) }

// Retrieve runs the tiers in order and stops at the first non-empty result.
// Upstream outages only empty the tier; a canceled ctx aborts the call.
func (r *Retriever) Retrieve(ctx context.Context, p model.Point, target string) (Retrieval, error) {
	var out Retrieval
	for _, s := range r.tiers {
		tctx := mylog.WithTier(ctx, s.tier)
		cands, err := r.exec.Query(tctx, overpass.BuildQuery(s.build(p, target)))

		a := Attempt{Tier: s.tier, Radius: s.radius, Candidates: len(cands)}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, fmt.Errorf("retrieve tier %d: %w", s.tier, ctxErr)
			}
			a.Error = err.Error()
			if errors.Is(err, overpass.ErrUpstreamUnavailable) {
				a.Error = overpass.ErrUpstreamUnavailable.Error()
			}
			r.logger.WarnContext(tctx, "retrieval tier unavailable", "tier", s.tier, "err", err)
		}
		out.Attempts = append(out.Attempts, a)

		if len(cands) > 0 {
			out.Candidates = cands
			out.Tier = s.tier
			out.Radius = s.radius
			r.logger.DebugContext(tctx, "retrieval tier produced candidates",
				"tier", s.tier, "radius", s.radius, "candidates", len(cands))
			return out, nil
		}
	}
	return out, nil
}
