// Package style implements the small inline-CSS algebra used to strip redundant
// style attributes from exported documents.
//
// A Set maps property names to values. Declarations are parsed from a style
// attribute ("k: v; k2: v2"), names are lower-cased and both sides trimmed.
// Serialization is deterministic (sorted by name) so two equal sets always
// produce the same attribute text.
package style

import (
	"sort"
	"strings"
)

// Set is a mutable mapping of CSS property name to value. The zero value is not
// usable; create one with New or Parse. A Set is not shared between elements.
type Set struct {
	props map[string]string
}

// New returns an empty Set.
func New() *Set {
	return &Set{props: make(map[string]string)}
}

// Parse builds a Set from a style attribute value. Empty declarations are skipped.
func Parse(attr string) *Set {
	s := New()
	s.parse(attr)
	return s
}

func (s *Set) parse(attr string) {
	forEachDecl(attr, func(name, value string) bool {
		s.props[name] = value
		return true
	})
}

// Add parses a single "name:value" declaration. A declaration without a colon
// records the name with an empty value.
func (s *Set) Add(decl string) {
	if name, value, ok := splitDecl(decl); ok {
		s.props[name] = value
	}
}

// Put sets name to value.
func (s *Set) Put(name, value string) {
	name = normalizeName(name)
	if name == "" {
		return
	}
	s.props[name] = strings.TrimSpace(value)
}

// Remove deletes the given properties. Unknown names are ignored.
func (s *Set) Remove(names ...string) {
	for _, name := range names {
		delete(s.props, normalizeName(name))
	}
}

// Has reports whether name is declared.
func (s *Set) Has(name string) bool {
	_, ok := s.props[normalizeName(name)]
	return ok
}

// Get returns the value of name.
func (s *Set) Get(name string) (string, bool) {
	v, ok := s.props[normalizeName(name)]
	return v, ok
}

// IntValue returns the leading integer of the named value, or fallback when the
// property is missing or does not start with a number.
func (s *Set) IntValue(name string, fallback int) int {
	v, ok := s.Get(name)
	if !ok {
		return fallback
	}
	return ParseInt(v, fallback)
}

// Len returns the number of declarations.
func (s *Set) Len() int { return len(s.props) }

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c := &Set{props: make(map[string]string, len(s.props))}
	for k, v := range s.props {
		c.props[k] = v
	}
	return c
}

// String serializes the set as "a:1;b:2" with names in sorted order.
func (s *Set) String() string {
	if len(s.props) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.props))
	for k := range s.props {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(s.props[k])
	}
	return b.String()
}

// Diff compares a child's style attribute against s, the effective style of the
// child's ancestors. Declarations already present in s with the same value are
// dropped. When at least one declaration survives, Diff returns the merged style
// (s plus the survivors) to use for the child's own children, the residual style
// text for the child, and true. When every declaration matched it returns
// (nil, "", false) without building any string.
func (s *Set) Diff(childAttr string) (*Set, string, bool) {
	var residual *Set
	forEachDecl(childAttr, func(name, value string) bool {
		if cur, ok := s.props[name]; ok && cur == value {
			return true
		}
		if residual == nil {
			residual = New()
		}
		residual.props[name] = value
		return true
	})
	if residual == nil {
		return nil, "", false
	}

	merged := s.Clone()
	for k, v := range residual.props {
		merged.props[k] = v
	}
	return merged, residual.String(), true
}

// ParseInt parses the leading, optionally signed, integer of value ("36pt" is 36,
// "-4.5px" is -4). Any other input yields fallback.
func ParseInt(value string, fallback int) int {
	value = strings.TrimSpace(value)
	i := 0
	neg := false
	if i < len(value) && (value[i] == '-' || value[i] == '+') {
		neg = value[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		n = n*10 + int(value[i]-'0')
		if n > 1<<30 {
			return fallback
		}
		i++
	}
	if i == start {
		return fallback
	}
	if neg {
		n = -n
	}
	return n
}

// forEachDecl walks the declarations of a style attribute without allocating
// intermediate slices. fn returns false to stop.
func forEachDecl(attr string, fn func(name, value string) bool) {
	for attr != "" {
		var decl string
		decl, attr, _ = strings.Cut(attr, ";")
		name, value, ok := splitDecl(decl)
		if !ok {
			continue
		}
		if !fn(name, value) {
			return
		}
	}
}

// splitDecl splits on the first colon so values such as url(http://x) survive.
func splitDecl(decl string) (string, string, bool) {
	name, value, _ := strings.Cut(decl, ":")
	name = normalizeName(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
