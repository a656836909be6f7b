// Package fillsign reconciles fill-and-sign assignments against the live
// folder state of a DocSpace forms room.
package fillsign

import (
	"regexp"
	"strings"
)

var (
	extensionRe  = regexp.MustCompile(`(?i)\.[a-z0-9]+$`)
	dashReplacer = strings.NewReplacer("–", "-", "—", "-")
)

// Normalize lowercases text, trims it and collapses inner whitespace.
// Any Unicode space counts, including non-breaking and thin spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// StripExtension removes a trailing ".ext" suffix from a title if present.
func StripExtension(title string) string {
	return extensionRe.ReplaceAllString(title, "")
}

// normalizeTitle is Normalize with en and em dashes folded into hyphens.
func normalizeTitle(text string) string {
	return Normalize(dashReplacer.Replace(text))
}

// templateKey is the cohort key for a template title.
func templateKey(title string) string {
	return Normalize(StripExtension(title))
}
