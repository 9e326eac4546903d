package sections

import (
	"crypto/sha1" // #nosec G505 -- short non-security fingerprint for file names
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// DateLayout is the only accepted section date format.
const DateLayout = "2006-01-02"

const (
	maxKeyLen  = 48
	hashSuffix = 8
)

var (
	keyUnsafeRE = regexp.MustCompile(`[^a-z0-9_-]`)
	keyRunRE    = regexp.MustCompile(`_+`)
)

// PostKey derives the stable key of a post: the ISO date, an underscore and the
// lower-cased title with anything outside [a-z0-9_-] folded to "_". Keys longer
// than 48 characters are cut and end with the first 8 hex digits of the SHA-1 of
// the full key.
func PostKey(date time.Time, title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = keyUnsafeRE.ReplaceAllString(slug, "_")
	slug = keyRunRE.ReplaceAllString(slug, "_")
	key := date.Format(DateLayout) + "_" + slug

	if len(key) > maxKeyLen {
		sum := sha1.Sum([]byte(key)) // #nosec G401 -- not used for security
		key = key[:maxKeyLen-1-hashSuffix] + "_" + hex.EncodeToString(sum[:])[:hashSuffix]
	}
	return key
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ferrors.WrapError(err, ferrors.CategoryDate, "invalid section date").
			WithContext("date", value).
			Build()
	}
	return d, nil
}
