// Package gate is the quality check every rewritten item passes before it
// may be published. A failed check rejects the item with machine-readable
// reason codes; rejection is terminal for the item, never a retry.
package gate

import (
	"unicode"
	"unicode/utf8"

	"espanews/internal/model"
)

// Reason identifies one failed check.
type Reason string

const (
	ReasonEmptyTitle       Reason = "empty_title"
	ReasonEmptyBody        Reason = "empty_body"
	ReasonNotLanguageTitle Reason = "not_language_title"
	ReasonNotLanguageBody  Reason = "not_language_body"
	ReasonTooFewTags       Reason = "too_few_tags"
	ReasonMessageTooLong   Reason = "message_too_long"
)

// Gate validates rewrite results against the channel's publication rules.
type Gate struct {
	// MinTags is the minimum number of tags a result must carry.
	MinTags int
	// LanguageThreshold is the minimum share of Cyrillic letters among all
	// letters, checked separately for title and body. The threshold itself
	// passes.
	LanguageThreshold float64
	// MaxLen is the longest formatted message the channel accepts, in runes.
	MaxLen int
	// Render produces the outbound message text whose length is checked.
	Render func(model.Post) string
}

// Check runs the rules in order and stops at the first failure. The second
// return value is true when the post may be published; otherwise the reason
// names the failed check.
func (g *Gate) Check(post model.Post) (Reason, bool) {
	res := post.Rewrite

	if res.Title == "" {
		return ReasonEmptyTitle, false
	}
	if res.Body == "" {
		return ReasonEmptyBody, false
	}

	if cyrillicRatio(res.Title) < g.LanguageThreshold {
		return ReasonNotLanguageTitle, false
	}
	if cyrillicRatio(res.Body) < g.LanguageThreshold {
		return ReasonNotLanguageBody, false
	}

	if len(res.Tags) < g.MinTags {
		return ReasonTooFewTags, false
	}

	if g.Render != nil && utf8.RuneCountInString(g.Render(post)) > g.MaxLen {
		return ReasonMessageTooLong, false
	}

	return "", true
}

// cyrillicRatio is the share of Cyrillic letters among all letters in s.
// Digits, punctuation, and spaces are ignored, so numbers and proper names
// in quotes don't sink an otherwise Russian text. No letters at all counts
// as zero.
func cyrillicRatio(s string) float64 {
	var letters, cyrillic int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(cyrillic) / float64(letters)
}
