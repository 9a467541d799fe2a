// Package keys derives cache keys for resolved street queries.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/street-resolver/internal/canon"
	"github.com/mohammed-shakir/street-resolver/internal/core/model"
)

const (
	namespace     = "resolve:v1"
	maxStreetText = 48
)

// CellPrefix is shared by every key of cell, so a cell can be dropped at once.
func CellPrefix(cell string) string {
	return namespace + ":" + cell + ":"
}

// Key is CellPrefix(cell) plus a readable street label and a hash of the
// canonical query. Coordinates are rounded to 1e-5 degrees (about a metre).
func Key(cell string, q model.RawQuery) string {
	street := canon.Canonicalize(q.StreetName)
	fp := Fingerprint(q)

	label := sanitizeForKey(street)
	if len(label) > maxStreetText {
		label = label[:maxStreetText]
	}
	return fmt.Sprintf("%s%s:f=%016x", CellPrefix(cell), label, xxhash.Sum64String(fp))
}

// Fingerprint is the normalized text the key hash is computed over.
func Fingerprint(q model.RawQuery) string {
	return strings.Join([]string{
		canon.Canonicalize(q.StreetName),
		canon.Canonicalize(q.City),
		canon.Canonicalize(q.Barangay),
		fmt.Sprintf("%.5f,%.5f", q.Point.Lat, q.Point.Lon),
	}, "|")
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
