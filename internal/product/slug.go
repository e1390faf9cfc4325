// AngelaMos | 2026
// slug.go

package product

import (
	"strings"
	"unicode"
)

const maxSlugLength = 80

// Slugify derives a URL-safe slug from a product name. Collisions are
// resolved by the service with a numeric suffix counter.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII,
			unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "product"
	}

	return slug
}
