// Package similarity scores how alike two short strings are on a 0-100 scale.
//
// Ratio compares whole strings; Weighted also tries partial-window and
// token-order-insensitive comparisons so that "show me all files" still
// lands near "show files". Both are fuzzywuzzy scorers.
package similarity

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Scorer compares two strings and returns a similarity in [0, 100].
type Scorer interface {
	// Ratio is the normalized edit-distance similarity of the whole strings.
	Ratio(a, b string) float64
	// Weighted picks the best of several comparison strategies, discounted
	// by how much the strategy had to ignore.
	Weighted(a, b string) float64
}

// Fuzzy is the default Scorer.
type Fuzzy struct{}

// New returns the default scorer.
func New() Fuzzy { return Fuzzy{} }

// Ratio implements Scorer. Identical strings, empty ones included, score 100.
func (Fuzzy) Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	return float64(fuzzy.Ratio(a, b))
}

// Weighted implements Scorer. Case and runs of whitespace are ignored.
func (Fuzzy) Weighted(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	return float64(fuzzy.UWRatio(a, b))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
