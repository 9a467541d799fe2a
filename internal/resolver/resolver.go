// Package resolver picks the road geometry that best matches an informal
// street name near a point.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mohammed-shakir/street-resolver/internal/canon"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/core/observability"
	"github.com/mohammed-shakir/street-resolver/internal/retriever"
)

// ErrInvalidInput marks caller errors detected before any retrieval.
var ErrInvalidInput = errors.New("invalid input")

type Config struct {
	Threshold       float64
	ProximityWeight float64
	Aliases         canon.AliasTable
}

func DefaultConfig() Config {
	return Config{Threshold: 0.4, ProximityWeight: 0.15, Aliases: canon.DefaultAliases}
}

type Interface interface {
	Resolve(ctx context.Context, q model.RawQuery) (Result, error)
}

type Resolver struct {
	logger *slog.Logger
	retr   retriever.Interface
	cfg    Config
}

var _ Interface = (*Resolver)(nil)

func New(logger *slog.Logger, retr retriever.Interface, cfg Config) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger, retr: retr, cfg: cfg}
}

// Target canonicalizes the query's street name, alias table first.
func (r *Resolver) Target(q model.RawQuery) (string, bool) {
	return r.cfg.Aliases.Apply(q.City, q.Barangay, q.StreetName)
}

// Validate rejects queries that can never be resolved.
func Validate(q model.RawQuery) error {
	if strings.TrimSpace(q.StreetName) == "" {
		return fmt.Errorf("%w: street name is required", ErrInvalidInput)
	}
	if !q.Point.Valid() {
		return fmt.Errorf("%w: coordinates must be finite WGS84 degrees (got %v,%v)",
			ErrInvalidInput, q.Point.Lat, q.Point.Lon)
	}
	return nil
}

// Resolve returns a matched or unmatched Result. Upstream outages and weak
// matches are not errors; only invalid input and a canceled ctx are.
func (r *Resolver) Resolve(ctx context.Context, q model.RawQuery) (Result, error) {
	if err := Validate(q); err != nil {
		return Result{}, err
	}
	target, aliased := r.Target(q)
	if target == "" {
		return Result{}, fmt.Errorf("%w: street name %q has no comparable content", ErrInvalidInput, q.StreetName)
	}

	ret, err := r.retr.Retrieve(ctx, q.Point, target)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", target, err)
	}

	res := Result{Meta: Meta{
		Target:       target,
		AliasApplied: aliased,
		Tier:         ret.Tier,
		Radius:       ret.Radius,
		Candidates:   len(ret.Candidates),
		Attempts:     ret.Attempts,
	}}

	best := selectBest(target, q.Point, ret.Candidates, ret.Radius, r.cfg.ProximityWeight)
	score := -1.0
	if best != nil {
		score = best.Score
		res.Meta.BestScore = &best.Score
		if best.Score >= r.cfg.Threshold {
			name := best.MatchedName
			res.Matched = true
			res.Meta.Matched = true
			res.Meta.Name = &name
			res.Feature = toFeature(best)
		}
	}
	observability.ObserveResolution(res.Matched, ret.Tier, score)

	attrs := []any{
		"target", target, "alias", aliased, "tier", ret.Tier,
		"candidates", len(ret.Candidates), "matched", res.Matched,
	}
	if best != nil {
		attrs = append(attrs, "best_score", best.Score, "best_name", best.MatchedName, "osm_id", best.Candidate.ID)
	}
	r.logger.InfoContext(ctx, "resolution decided", attrs...)
	return res, nil
}
