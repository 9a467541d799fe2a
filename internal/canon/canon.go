// Package canon normalizes street names into a comparable canonical form.
package canon

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]string{
	"ST":   "STREET",
	"RD":   "ROAD",
	"AVE":  "AVENUE",
	"BLVD": "BOULEVARD",
	"DR":   "DRIVE",
}

var punct = strings.NewReplacer(",", " ", ".", " ")

// Canonicalize uppercases s, turns commas and periods into spaces, collapses
// whitespace and expands the common street-type abbreviations.
func Canonicalize(s string) string {
	s = strings.ToUpper(s)
	s = punct.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = expandAbbreviations(s)
	return strings.TrimSpace(s)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// expandAbbreviations replaces whole words only. Word runes include every
// Unicode letter, so "ÑST" stays as is.
func expandAbbreviations(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	flush := func(end int) {
		w := s[start:end]
		if full, ok := abbreviations[w]; ok {
			w = full
		}
		b.WriteString(w)
		start = -1
	}
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		flush(len(s))
	}
	return b.String()
}

// TokenizeNameField splits a multi-valued OSM name tag on ';' or '|' and
// returns the distinct non-empty canonical forms in input order.
func TokenizeNameField(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		c := Canonicalize(p)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Variants collects the canonical names of every field in order, de-duplicated
// across fields.
func Variants(fields ...string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, f := range fields {
		for _, v := range TokenizeNameField(f) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Tokens returns at most n leading whitespace tokens of a canonical name.
func Tokens(canonical string, n int) []string {
	f := strings.Fields(canonical)
	if n >= 0 && len(f) > n {
		f = f[:n]
	}
	return f
}
