// Package slug builds the human-readable identifiers accounts are looked up by.
package slug

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxLen bounds generated slugs.
const MaxLen = 64

var reSlug = regexp.MustCompile(`^[a-z0-9_-]{2,64}$`)

// IsSlug reports whether s matches ^[a-z0-9_-]{2,64}$.
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify lowercases s, folds every run of other characters into a single '_',
// trims to MaxLen and strips leading/trailing separators.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			out = append(out, r)
			prevSep = false
		default:
			if !prevSep {
				out = append(out, '_')
				prevSep = true
			}
		}
		if len(out) >= MaxLen {
			break
		}
	}
	return strings.Trim(string(out), "_-")
}

// Join slugifies each part and joins the non-empty results with '_'.
func Join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Slugify(p); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return Slugify(strings.Join(cleaned, "_"))
}

// Derive builds a slug for name that always satisfies IsSlug. Names that
// slugify to something too short are prefixed with kind; names with no
// slug-able characters at all get a stable digest of the name instead.
func Derive(kind, name string) string {
	if s := Slugify(name); IsSlug(s) {
		return s
	} else if s != "" {
		if joined := Join(kind, s); IsSlug(joined) {
			return joined
		}
	}
	return Join(kind, Slugify(name), digest(name))
}

func digest(name string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
