package domain

import (
	"strings"
	"unicode"
)

// CollectionPrefix is prepended to a slug to name the tenant collection.
const CollectionPrefix = "org_"

// NormalizeName derives the slug of an organization name: trimmed, lower-cased,
// whitespace runs replaced by "_" and every character outside [a-z0-9_]
// removed. The result may be empty.
func NormalizeName(raw string) string {
	words := strings.FieldsFunc(strings.ToLower(raw), IsNameSpace)
	joined := strings.Join(words, "_")

	var b strings.Builder
	b.Grow(len(joined))
	for _, r := range joined {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsNameSpace reports whether r separates words of an organization name.
// Besides unicode.IsSpace it accepts the ASCII information separators
// U+001C..U+001F.
func IsNameSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// CollectionName returns the tenant collection name for a slug.
func CollectionName(slug string) string {
	return CollectionPrefix + slug
}

// IsTenantCollection returns true if name follows the tenant collection scheme.
func IsTenantCollection(name string) bool {
	return strings.HasPrefix(name, CollectionPrefix) && len(name) > len(CollectionPrefix)
}
