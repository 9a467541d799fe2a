package canon

import "strings"

// AliasRule forces a canonical rewrite for a street that is known locally by
// a different name. Patterns match by case-insensitive substring.
type AliasRule struct {
	City     string
	Barangay string
	Source   string
	Rewrite  string
}

func (r AliasRule) matches(city, barangay, street string) bool {
	return containsFold(city, r.City) &&
		containsFold(barangay, r.Barangay) &&
		containsFold(street, r.Source)
}

// AliasTable is evaluated in order, first match wins.
type AliasTable []AliasRule

// DefaultAliases holds the local equivalences known to the resolver.
var DefaultAliases = AliasTable{
	// Aznar Road is signed and mapped as Aznar Street in Sambag II.
	{City: "CEBU", Barangay: "SAMBAG II", Source: "AZNAR", Rewrite: "AZNAR STREET"},
}

// Apply returns the canonical target for street, consulting the table before
// falling back to Canonicalize. The bool reports whether a rule fired.
func (t AliasTable) Apply(city, barangay, street string) (string, bool) {
	for _, r := range t {
		if r.matches(city, barangay, street) {
			return Canonicalize(r.Rewrite), true
		}
	}
	return Canonicalize(street), false
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(sub))
}
