package blog

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// CatFilter matches categories against a comma-separated list of regular
// expressions. A "#" starts a comment that runs to the end of the list. Each
// expression must match the whole trimmed, lower-cased category.
type CatFilter struct {
	source   string
	patterns []*regexp.Regexp

	mu    sync.Mutex
	quick map[string]bool
}

// ParseCatFilter compiles spec. An empty spec yields an empty filter, which matches
// nothing.
func ParseCatFilter(spec string) (*CatFilter, error) {
	f := &CatFilter{source: spec, quick: make(map[string]bool)}
	list, _, _ := strings.Cut(spec, "#")
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + entry + ")$")
		if err != nil {
			return nil, ferrors.ConfigError(fmt.Sprintf("invalid category filter %q", entry)).
				WithCause(err).
				WithContext("filter", spec).
				Build()
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// MustCatFilter is ParseCatFilter for specs known to be valid.
func MustCatFilter(spec string) *CatFilter {
	f, err := ParseCatFilter(spec)
	if err != nil {
		panic(err)
	}
	return f
}

// Empty reports whether the filter has no expression.
func (f *CatFilter) Empty() bool {
	return len(f.patterns) == 0
}

// String returns the pattern list the filter was parsed from.
func (f *CatFilter) String() string {
	return f.source
}

// Matches reports whether category matches one of the expressions. The empty
// category never matches.
func (f *CatFilter) Matches(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || len(f.patterns) == 0 {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quick[category] {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(category) {
			f.quick[category] = true
			return true
		}
	}
	return false
}
