// Package overpass builds Overpass QL queries for named highway ways and
// decodes their JSON responses into candidates.
package overpass

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

// ErrUpstreamUnavailable is returned when no mirror produced a usable payload.
var ErrUpstreamUnavailable = errors.New("overpass: all endpoints failed")

var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.private.coffee/api/interpreter",
}

// Query describes one retrieval round around Center.
type Query struct {
	Center model.Point
	Radius float64
	// NameTokens restricts results to ways whose name tags match any token.
	// Empty means any named highway.
	NameTokens []string
	// NearRadius adds an unfiltered union of named highways within this radius.
	// Zero disables it.
	NearRadius float64
	TimeoutSec int
}

// BuildQuery renders q as Overpass QL returning ways with inline geometry.
func BuildQuery(q Query) string {
	timeout := q.TimeoutSec
	if timeout <= 0 {
		timeout = 25
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeout)

	around := aroundFilter(q.Radius, q.Center)
	if len(q.NameTokens) > 0 {
		pattern := tokenPattern(q.NameTokens)
		for _, tag := range model.NameTags {
			fmt.Fprintf(&b, "  way%s[\"highway\"][\"%s\"~\"%s\",i];\n", around, tag, pattern)
		}
		if q.NearRadius > 0 {
			fmt.Fprintf(&b, "  way%s[\"highway\"][\"name\"];\n", aroundFilter(q.NearRadius, q.Center))
		}
	} else {
		fmt.Fprintf(&b, "  way%s[\"highway\"][\"name\"];\n", around)
	}

	b.WriteString(");\nout geom;\n")
	return b.String()
}

func aroundFilter(radius float64, c model.Point) string {
	return fmt.Sprintf("(around:%.0f,%.6f,%.6f)", radius, c.Lat, c.Lon)
}

func tokenPattern(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, EscapeRegex(t))
		}
	}
	return strings.Join(parts, "|")
}

var qlString = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// EscapeRegex makes a token safe as a literal inside a quoted QL regex.
func EscapeRegex(token string) string {
	return qlString.Replace(regexp.QuoteMeta(token))
}
