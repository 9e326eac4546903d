// Package markers implements the bracketed directive language authors embed in
// document text: [izu:...] tags and [s:date:title] section openers.
//
// A single leading bracket activates a marker. A doubled leading bracket ("[[izu:blog]]")
// is the author's escape: it is never recognized and renders as literal text.
package markers

import (
	"regexp"
	"strings"
)

// Tag names. Names ending with ":" take a value.
const (
	Prefix = "izu:"

	Blog          = "izu:blog"
	BlogTitle     = "izu:blog-title:"
	BlogAcceptCat = "izu:blog-accept-cat:"
	BlogRejectCat = "izu:blog-reject-cat:"
	BlogGenSingle = "izu:blog-gen-single:"
	BlogGenMixed  = "izu:blog-gen-mixed:"
	BlogBannerEx  = "izu:blog-banner-exclude:"
	BlogMixedCat  = "izu:blog-mixed-cat:"
	HeaderEnd     = "izu:header:end"
	BlogEnd       = "izu:blog:end"
	Break         = "izu:break"
	Category      = "izu:cat:"
	LinkImg       = "izu:link-img:"
	Desc          = "izu:desc:"
	OldSection    = "izu:old_s:"

	CommentOpen  = "[!--"
	CommentClose = "--]"
)

var (
	// izuTagRE captures the opening bracket(s), the tag and the closing bracket(s).
	izuTagRE = regexp.MustCompile(`(\[\[?)(izu[:-][^\[\]]+)(\]\]?)`)
	// sectionTagRE captures the opening bracket(s) and the value after "s:".
	sectionTagRE = regexp.MustCompile(`(\[\[?)s:([^\[\]]+)\]`)
)

// Tags returns the unescaped izu tags found in text, in order, without brackets.
func Tags(text string) []string {
	var tags []string
	for _, m := range izuTagRE.FindAllStringSubmatch(text, -1) {
		if len(m[1]) > 1 {
			continue
		}
		tags = append(tags, strings.TrimSpace(m[2]))
	}
	return tags
}

// OnlyMarkers reports whether text holds at least one tag and nothing but tags
// and whitespace.
func OnlyMarkers(text string) bool {
	if len(Tags(text)) == 0 {
		return false
	}
	rest := izuTagRE.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "[[") {
			return m
		}
		return ""
	})
	return strings.TrimSpace(rest) == ""
}

// Contains reports whether tag is in tags.
func Contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasPrefix reports whether any tag starts with prefix, with or without a value.
func HasPrefix(tags []string, prefix string) bool {
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// Value returns the first non-empty trimmed value of a prefixed tag, or "".
func Value(tags []string, prefix string) string {
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			if v := strings.TrimSpace(t[len(prefix):]); v != "" {
				return v
			}
		}
	}
	return ""
}

// Values returns every non-empty trimmed value of a prefixed tag, in order.
func Values(tags []string, prefix string) []string {
	var out []string
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			if v := strings.TrimSpace(t[len(prefix):]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// SectionTag is a recognized [s:...] opener.
type SectionTag struct {
	// Value is the text between "s:" and the closing bracket, e.g. "2024-01-02:Title".
	Value string
	// After is the text that follows the marker.
	After string
}

// FindSection returns the first section opener in text. An escaped first opener
// means the text holds no section marker.
func FindSection(text string) (SectionTag, bool) {
	loc := sectionTagRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return SectionTag{}, false
	}
	if loc[3]-loc[2] > 1 {
		return SectionTag{}, false
	}
	return SectionTag{
		Value: text[loc[4]:loc[5]],
		After: text[loc[1]:],
	}, true
}

// Strip removes unescaped izu tags from text and turns escaped ones, including
// escaped section openers, into their literal single-bracket form.
func Strip(text string) string {
	if !strings.Contains(text, "[") {
		return text
	}
	text = izuTagRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := izuTagRE.FindStringSubmatch(m)
		open, tag, closing := sub[1], sub[2], sub[3]
		if len(open) > 1 {
			return "[" + tag + "]"
		}
		// "[izu:x]]" keeps the stray bracket that does not belong to the tag.
		return closing[1:]
	})
	return unescapeSections(text)
}

var escapedSectionRE = regexp.MustCompile(`\[\[s:([^\[\]]+)\]\]?`)

func unescapeSections(text string) string {
	return escapedSectionRE.ReplaceAllString(text, "[s:$1]")
}
