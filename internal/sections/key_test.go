package sections

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostKey(t *testing.T) {
	date := time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		title string
		want  string
	}{
		{"Title 1", "2023-07-14_title_1"},
		{"  Hello, World!  ", "2023-07-14_hello_world_"},
		{"already_snake-case", "2023-07-14_already_snake-case"},
		{"Émile & co", "2023-07-14__mile_co"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PostKey(date, tt.title), tt.title)
	}
}

func TestPostKeyTruncatesLongTitles(t *testing.T) {
	date := time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)
	title := "A rather long title that goes well beyond the limit of forty eight characters"

	key := PostKey(date, title)
	assert.Len(t, key, 48)
	assert.True(t, strings.HasPrefix(key, "2023-07-14_a_rather_long_title_that_g"), key)
	assert.Equal(t, byte('_'), key[39])
	assert.Equal(t, key, PostKey(date, title), "derivation is deterministic")

	other := PostKey(date, title+" two")
	assert.Equal(t, key[:40], other[:40])
	assert.NotEqual(t, key, other)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 1901-01-02 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1901, 1, 2, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "1901-1-2", "01/02/1901", "1901-02-30", "1901-01-02T00:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}
