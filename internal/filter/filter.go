// Package filter drops promotional and sponsored items before they cost a
// model call. Detection is keyword scoring over title and description: strong
// markers are near-certain promo signals, weak markers only reject in
// numbers.
package filter

import (
	"regexp"
	"strings"

	"espanews/internal/model"
)

// Markers that almost never appear in editorial copy.
var strongPromoKeywords = []string{
	"contenido patrocinado",
	"publirreportaje",
	"publicidad",
	"branded content",
	"oferta exclusiva",
	"código de descuento",
	"código promocional",
	"suscríbete ahora",
	"compra ahora",
	"black friday",
}

// Markers that also occur in legitimate consumer news, so one alone proves
// nothing.
var weakPromoKeywords = []string{
	"oferta",
	"descuento",
	"promoción",
	"rebajas",
	"sorteo",
	"gratis",
	"cupón",
	"outlet",
	"chollo",
	"mejor precio",
	"envío gratuito",
	"por solo",
	"aprovecha",
}

// Filter scores items against the promo keyword lists.
type Filter struct {
	// WeakThreshold is how many distinct weak markers reject an item.
	WeakThreshold int
	// StrongThreshold is how many distinct strong markers reject an item.
	StrongThreshold int
}

func New(weakThreshold, strongThreshold int) *Filter {
	return &Filter{WeakThreshold: weakThreshold, StrongThreshold: strongThreshold}
}

// IsPromo reports whether the item reads like an advertisement. The second
// return value names the markers that triggered, for the rejection log.
func (f *Filter) IsPromo(item model.Item) (bool, []string) {
	text := strings.ToLower(item.Title + " " + item.Description)

	strong := matchedKeywords(text, strongPromoKeywords)
	if len(strong) >= f.StrongThreshold {
		return true, strong
	}

	weak := matchedKeywords(text, weakPromoKeywords)
	if len(weak) >= f.WeakThreshold {
		return true, weak
	}

	return false, nil
}

// matchedKeywords returns the distinct keywords found in text. Phrases match
// as substrings; short single words match on word boundaries so "gratis"
// doesn't fire inside unrelated longer words.
func matchedKeywords(text string, keywords []string) []string {
	var matched []string
	for _, k := range keywords {
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				matched = append(matched, k)
			}
			continue
		}

		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
		if re.MatchString(text) {
			matched = append(matched, k)
		}
	}
	return matched
}
