package search

import "github.com/poiesic/folio/core"

const (
	// DefaultLimit caps matcher and hybrid results when Options.Limit is zero.
	DefaultLimit = 10

	// DefaultHybridSubLimit caps each matcher inside a hybrid search when
	// Options.Limit is zero.
	DefaultHybridSubLimit = 5

	// DefaultThreshold is the minimum similarity for a semantic match.
	DefaultThreshold float32 = 0.3
)

// Options tunes a search. The zero value uses the defaults.
type Options struct {
	// Limit caps the result count. In a hybrid search it also caps each matcher.
	Limit int
	// Threshold is the inclusive minimum similarity for semantic matches.
	// Nil means DefaultThreshold.
	Threshold *float32
	// Filters restricts the candidate posts.
	Filters core.Filters
}

// Threshold returns a pointer to v for use in Options.
func Threshold(v float32) *float32 {
	return &v
}

func (o *Options) limitOr(def int) int {
	if o == nil || o.Limit <= 0 {
		return def
	}
	return o.Limit
}

func (o *Options) threshold() float32 {
	if o == nil || o.Threshold == nil {
		return DefaultThreshold
	}
	return *o.Threshold
}

func (o *Options) filters() core.Filters {
	if o == nil {
		return core.Filters{}
	}
	return o.Filters
}
