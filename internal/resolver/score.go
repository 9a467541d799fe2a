package resolver

import (
	"math"
	"strings"

	"github.com/mohammed-shakir/street-resolver/internal/canon"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
	"github.com/mohammed-shakir/street-resolver/internal/geodist"
	"github.com/mohammed-shakir/street-resolver/internal/similarity"
)

const (
	ExactScore       = 1.0
	ContainmentScore = 0.92
)

// ScoredMatch is one (candidate, name variant) pair and its composite score.
type ScoredMatch struct {
	Candidate      model.Candidate
	MatchedName    string
	Score          float64
	Base           float64
	Bonus          float64
	DistanceMeters float64
}

// BaseScore compares two canonical names: exact 1.0, containment in either
// direction 0.92, otherwise normalized Levenshtein similarity.
func BaseScore(target, name string) float64 {
	if target == "" || name == "" {
		return 0
	}
	switch {
	case target == name:
		return ExactScore
	case strings.Contains(name, target), strings.Contains(target, name):
		return ContainmentScore
	default:
		return similarity.Similarity(target, name)
	}
}

// ProximityBonus is max(0, 1 - d/radius) * weight.
func ProximityBonus(distanceMeters, radiusMeters, weight float64) float64 {
	if radiusMeters <= 0 || math.IsNaN(distanceMeters) || math.IsInf(distanceMeters, 0) {
		return 0
	}
	f := 1 - distanceMeters/radiusMeters
	if f <= 0 {
		return 0
	}
	return min(f, 1) * weight
}

// CandidateVariants lists a candidate's canonical names across its name tags.
func CandidateVariants(c model.Candidate) []string {
	fields := make([]string, 0, len(model.NameTags))
	for _, tag := range model.NameTags {
		fields = append(fields, c.Tag(tag))
	}
	return canon.Variants(fields...)
}

// selectBest scores every pair in retrieval order and keeps the first pair
// with the strictly highest score. nil when no candidate has a usable name.
func selectBest(target string, p model.Point, cands []model.Candidate, radius, weight float64) *ScoredMatch {
	var best *ScoredMatch
	for _, c := range cands {
		variants := CandidateVariants(c)
		if len(variants) == 0 {
			continue
		}
		dist := geodist.MinDistanceMeters(p, c.Geometry)
		bonus := ProximityBonus(dist, radius, weight)
		for _, v := range variants {
			base := BaseScore(target, v)
			score := base + bonus
			if best == nil || score > best.Score {
				best = &ScoredMatch{
					Candidate:      c,
					MatchedName:    v,
					Score:          score,
					Base:           base,
					Bonus:          bonus,
					DistanceMeters: dist,
				}
			}
		}
	}
	return best
}
