package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxChannelNameLength = 90
	subjectSlugLength    = 18
	requesterSlugLength  = 12
	ticketSuffixLength   = 4

	archivedPrefix = "archived-"
	closedPrefix   = "closed-"
)

var lowerCaser = cases.Lower(language.Und)

// slugify folds diacritics, lower-cases and collapses every run of
// non-alphanumeric characters into one '-'.
func slugify(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	folded = lowerCaser.String(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func truncateSlug(slug string, n int) string {
	if len(slug) > n {
		slug = slug[:n]
	}
	return strings.Trim(slug, "-")
}

// TicketChannelName builds ticket-{subject}-{requester}-{last4}. Empty parts
// are dropped rather than leaving doubled dashes.
func TicketChannelName(subject, requesterName, ticketNumber string) string {
	suffix := ticketNumber
	if len(suffix) > ticketSuffixLength {
		suffix = suffix[len(suffix)-ticketSuffixLength:]
	}
	parts := []string{"ticket"}
	for _, part := range []string{
		truncateSlug(slugify(subject), subjectSlugLength),
		truncateSlug(slugify(requesterName), requesterSlugLength),
		slugify(suffix),
	} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return capChannelName(strings.Join(parts, "-"))
}

// prefixedChannelName prepends prefix once, replacing an earlier lifecycle prefix.
func prefixedChannelName(prefix, name string) string {
	return capChannelName(prefix + unprefixedChannelName(name))
}

// unprefixedChannelName strips any lifecycle prefixes from name.
func unprefixedChannelName(name string) string {
	for {
		switch {
		case strings.HasPrefix(name, archivedPrefix):
			name = strings.TrimPrefix(name, archivedPrefix)
		case strings.HasPrefix(name, closedPrefix):
			name = strings.TrimPrefix(name, closedPrefix)
		default:
			return name
		}
	}
}

func capChannelName(name string) string {
	if len(name) > maxChannelNameLength {
		name = strings.TrimRight(name[:maxChannelNameLength], "-")
	}
	return name
}
