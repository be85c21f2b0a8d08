package zipfs

import (
	"sort"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// FilterSet selects the entries worth decompressing. It holds exact paths and
// glob patterns, both validated and normalized when they are added. Rules
// are never removed once added.
//
// Glob patterns are compiled with '/' as separator: '*' and '?' never cross
// a path segment while '**' matches any run of characters including '/'.
// Character classes and {a,b} alternatives are supported as well.
//
// An empty FilterSet matches nothing. Pass a nil *FilterSet to LoadOpts to
// load every entry.
type FilterSet struct {
	exact map[string]struct{}
	globs []globRule
}

type globRule struct {
	pattern string
	g       glob.Glob
}

// NewFilterSet returns an empty filter set.
func NewFilterSet() *FilterSet {
	return &FilterSet{
		exact: make(map[string]struct{}),
	}
}

// NewFilterSetFrom builds a filter set from exact paths and glob patterns.
func NewFilterSetFrom(exact []string, globs []string) (*FilterSet, error) {
	f := NewFilterSet()
	for _, p := range exact {
		if err := f.AddExact(p); err != nil {
			return nil, err
		}
	}
	for _, p := range globs {
		if err := f.AddGlob(p); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddExact adds a path that must match exactly.
func (f *FilterSet) AddExact(path string) error {
	n, err := Validate(path)
	if err != nil {
		return err
	}
	if f.exact == nil {
		f.exact = make(map[string]struct{})
	}
	f.exact[n] = struct{}{}
	return nil
}

// AddGlob adds a glob pattern. Patterns go through the same validation as
// exact paths, so ".." is rejected here too.
func (f *FilterSet) AddGlob(pattern string) error {
	n, err := Validate(pattern)
	if err != nil {
		return err
	}
	g, err := glob.Compile(n, '/')
	if err != nil {
		return errors.Wrapf(ErrInvalidPattern, "%q: %v", pattern, err)
	}
	f.globs = append(f.globs, globRule{pattern: n, g: g})
	return nil
}

// Matches reports whether the canonical path matches any rule. A nil set
// matches nothing.
func (f *FilterSet) Matches(path string) bool {
	if f == nil {
		return false
	}
	if _, ok := f.exact[path]; ok {
		return true
	}
	for _, r := range f.globs {
		if r.g.Match(path) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no rule was ever added.
func (f *FilterSet) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.exact) == 0 && len(f.globs) == 0
}

// Exact returns the exact rules, sorted.
func (f *FilterSet) Exact() []string {
	if f == nil {
		return nil
	}
	res := make([]string, 0, len(f.exact))
	for p := range f.exact {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}

// Globs returns the glob rules in insertion order.
func (f *FilterSet) Globs() []string {
	if f == nil {
		return nil
	}
	res := make([]string, 0, len(f.globs))
	for _, r := range f.globs {
		res = append(res, r.pattern)
	}
	return res
}
