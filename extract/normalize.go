package extract

import (
	"strings"
	"unicode"
)

// ParseTitle splits a raw product title into brand and model.
//
// The category label (e.g. "Процессор") is removed when it is the first
// whole token of the title, the brand is the first remaining whitespace-delimited token, and the model is
// what is left once the brand is stripped from both edges, cut at the first
// comma. Everything after that comma is a variant suffix.
//
//	ParseTitle("Процессор AMD Ryzen 5 5600X, AM4", "Процессор") // "AMD", "Ryzen 5 5600X"
func ParseTitle(raw, categoryLabel string) (brand, model string) {
	title := strings.TrimSpace(raw)
	fields := strings.Fields(title)
	if len(fields) > 0 && categoryLabel != "" && fields[0] == categoryLabel {
		title = strings.TrimSpace(strings.TrimPrefix(title, categoryLabel))
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return "", ""
	}
	brand = fields[0]

	rest := strings.TrimPrefix(title, brand)
	rest = strings.TrimSuffix(strings.TrimSpace(rest), brand)
	if i := strings.IndexByte(rest, ','); i >= 0 {
		rest = rest[:i]
	}
	return brand, strings.TrimSpace(rest)
}

// NormalizePrice reduces a price block's text to its digits.
//
// When the text carries a discount badge ("-10%") the discounted price is
// the one printed after the percent sign, so only the text after the first
// '%' is kept. The result is then cut at the currency symbol and stripped
// of whitespace and any other non-digit characters. Thousands separators
// rendered as (narrow, no-break) spaces disappear with the whitespace.
//
// The discount rule relies on the badge preceding the discounted amount in
// the text node; it is a heuristic for the catalog's markup, not a general
// property of price strings.
//
// Already normalised input is returned unchanged.
func NormalizePrice(raw, currency string) string {
	text := raw
	if i := strings.IndexByte(text, '%'); i >= 0 {
		text = text[i+1:]
	}
	if currency != "" {
		if i := strings.Index(text, currency); i >= 0 {
			text = text[:i]
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if !unicode.IsSpace(r) && r != '-' && r != '−' {
			// Anything other than separators and a minus sign ends the
			// number, e.g. "32 990.50" keeps "32990".
			if b.Len() > 0 {
				break
			}
		}
	}
	return b.String()
}
