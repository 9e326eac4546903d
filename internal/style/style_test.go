package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesDeclarations(t *testing.T) {
	s := Parse(" line-height: 1; Orphans: 2;; padding-bottom: 0pt; widows: 2")

	assert.Equal(t, 4, s.Len())
	v, ok := s.Get("orphans")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, "line-height:1;orphans:2;padding-bottom:0pt;widows:2", s.String())
}

func TestParseKeepsColonsInValues(t *testing.T) {
	s := Parse("background-image: url(http://example.com/a.png)")
	v, _ := s.Get("background-image")
	assert.Equal(t, "url(http://example.com/a.png)", v)
}

func TestAddRemoveHas(t *testing.T) {
	s := New()
	s.Add("font-family:\"Arial\"")
	s.Add("bare")
	assert.True(t, s.Has("font-family"))
	assert.True(t, s.Has("bare"))

	s.Remove("bare", "missing")
	assert.False(t, s.Has("bare"))
	assert.Equal(t, "font-family:\"Arial\"", s.String())
}

func TestDiffDropsInheritedDeclarations(t *testing.T) {
	parent := Parse("color:#000;font-size:11pt")

	merged, residual, ok := parent.Diff("font-size: 11pt; font-weight: 700")
	require.True(t, ok)
	assert.Equal(t, "font-weight:700", residual)
	assert.Equal(t, "color:#000;font-size:11pt;font-weight:700", merged.String())

	// the parent is not modified
	assert.Equal(t, "color:#000;font-size:11pt", parent.String())
}

func TestDiffAllMatchingIsNoop(t *testing.T) {
	parent := Parse("color:#000;font-size:11pt")
	merged, residual, ok := parent.Diff("font-size:11pt;color: #000")
	assert.False(t, ok)
	assert.Nil(t, merged)
	assert.Empty(t, residual)

	_, _, ok = parent.Diff("")
	assert.False(t, ok)
}

func TestDiffIsIdempotent(t *testing.T) {
	parent := Parse("color:#000")
	child := "color:#f00;margin-left:36pt"

	merged, residual, ok := parent.Diff(child)
	require.True(t, ok)
	assert.Equal(t, "color:#f00;margin-left:36pt", residual)

	_, second, ok := merged.Diff(child)
	assert.False(t, ok)
	assert.Empty(t, second)
}

func TestDiffChangedValueSurvives(t *testing.T) {
	parent := Parse("color:#000")
	_, residual, ok := parent.Diff("color:#111")
	require.True(t, ok)
	assert.Equal(t, "color:#111", residual)
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in       string
		fallback int
		want     int
	}{
		{"36pt", 0, 36},
		{" 72 ", 0, 72},
		{"-18pt", 0, -18},
		{"12.75px", 0, 12},
		{"+5", 0, 5},
		{"pt", 7, 7},
		{"", 3, 3},
		{"-", 3, 3},
		{"99999999999999", 1, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseInt(tc.in, tc.fallback), tc.in)
	}
}

func TestIntValue(t *testing.T) {
	s := Parse("margin-left:36pt")
	assert.Equal(t, 36, s.IntValue("margin-left", 0))
	assert.Equal(t, 9, s.IntValue("margin-right", 9))
}
