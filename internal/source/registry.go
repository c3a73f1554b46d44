// Package source holds the immutable table of configured booking feeds and
// the per-feed normalization rules.
package source

import (
	"fmt"
	"regexp"
	"strings"
)

// AllKey is the reserved request key that selects every configured source.
const AllKey = "all"

// Source is one configured upstream feed. Empty strings and a nil pattern mean
// the corresponding rule is absent.
type Source struct {
	Key     string
	FeedURL string

	// ExcludeSummary drops events whose summary equals it, ignoring case.
	ExcludeSummary string
	// StripPattern matches are removed from every summary.
	StripPattern *regexp.Regexp
	// AddPrefix is written in front of every summary as "<prefix>- ".
	AddPrefix string
}

// Spec is the uncompiled form of a Source, as read from configuration.
type Spec struct {
	Key            string
	FeedURL        string
	ExcludeSummary string
	StripPattern   string
	AddPrefix      string
}

// Registry is an ordered, read-only key -> Source table. It is safe for
// concurrent use because nothing mutates it after NewRegistry returns.
type Registry struct {
	order []string
	byKey map[string]Source
}

// NewRegistry compiles specs into a Registry. Declaration order is kept and
// becomes the merge order of the combined calendar.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(specs)),
		byKey: make(map[string]Source, len(specs)),
	}

	for i, spec := range specs {
		key := strings.TrimSpace(spec.Key)
		if key == "" {
			return nil, fmt.Errorf("source #%d: key is empty", i)
		}
		if key == AllKey {
			return nil, fmt.Errorf("source #%d: key %q is reserved", i, AllKey)
		}
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("source %q: duplicate key", key)
		}
		if strings.TrimSpace(spec.FeedURL) == "" {
			return nil, fmt.Errorf("source %q: url is empty", key)
		}

		src := Source{
			Key:            key,
			FeedURL:        strings.TrimSpace(spec.FeedURL),
			ExcludeSummary: spec.ExcludeSummary,
			AddPrefix:      spec.AddPrefix,
		}
		if spec.StripPattern != "" {
			re, err := regexp.Compile(spec.StripPattern)
			if err != nil {
				return nil, fmt.Errorf("source %q: strip pattern: %w", key, err)
			}
			src.StripPattern = re
		}

		r.order = append(r.order, key)
		r.byKey[key] = src
	}

	return r, nil
}

// Get returns the source registered under key.
func (r *Registry) Get(key string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	src, ok := r.byKey[key]
	return src, ok
}

// Sources returns every source in registry order. The slice is a copy.
func (r *Registry) Sources() []Source {
	if r == nil {
		return nil
	}
	out := make([]Source, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Keys returns the source keys in registry order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len reports the number of configured sources.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
