package parsing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// numPat matches a receipt-style number: digit groups optionally separated by
// spaces (including the non-breaking and thin spaces OCR produces), with an
// optional comma- or dot-separated tail.
const numPat = `[0-9][0-9 \x{00A0}\x{2009}]*(?:[.,][0-9]{3})*(?:[.,][0-9]{1,2})?`

type pickStrategy int

const (
	pickFirst pickStrategy = iota
	// pickLargest prefers the biggest candidate. Totals dominate line-item
	// prices in magnitude.
	pickLargest
	// pickLast prefers the final occurrence. Totals are conventionally
	// printed after line items.
	pickLast
)

// amountRule is one pattern family in the extraction cascade. Rules run in
// order; the first rule that yields any valid candidate wins.
type amountRule struct {
	name string
	re   *regexp.Regexp
	pick pickStrategy

	// skipLineItems drops candidates immediately preceded by a
	// multiplication glyph ("3 x 450.00" unit prices).
	skipLineItems bool
}

var amountRules = []amountRule{
	{
		// "ИТОГО: 15 000,00", "Барлығы = 2500". OCR often mangles the
		// separator after the label, so any run of =, :, - is allowed.
		name: "total-label",
		re:   regexp.MustCompile(`(?i)(?:итого|барлығы|жалпы|всего к оплате|к оплате|total)[ \t]*[:=\-]*[ \t]*(` + numPat + `)`),
		pick: pickFirst,
	},
	{
		// Bare equals-anchored numbers. OCR renders "=" from a variety of
		// source glyphs, so this catches totals that lost their label.
		name: "equals-glyph",
		re:   regexp.MustCompile(`[=⁼₌][ \t]*(` + numPat + `)`),
		pick: pickLargest,
	},
	{
		name: "card-payment",
		re:   regexp.MustCompile(`(?i)(?:оплата[ \t]+картой|безналичн\w*|картой)[ \t]*[:=]?[ \t]*(` + numPat + `)`),
		pick: pickFirst,
	},
	{
		name: "currency-adjacent",
		re:   regexp.MustCompile(`(?i)(` + numPat + `)[ \t]*(?:₸|тг\.?|тнг|тенге|kzt)`),
		pick: pickFirst,
	},
	{
		name: "success-phrase",
		re:   regexp.MustCompile(`(?i)(?:успешно|одобрено|оплачено|операция[ \t]+одобрена)[^0-9\n]{0,40}(` + numPat + `)`),
		pick: pickFirst,
	},
	{
		name: "generic-total",
		re:   regexp.MustCompile(`(?i)(?:сумма|summa|оплата|paid|sum)[ \t]*[:=]?[ \t]*(` + numPat + `)`),
		pick: pickFirst,
	},
	{
		name: "cheque-amount",
		re:   regexp.MustCompile(`(?i)(?:чек[ \t]+на|покупка[ \t]+на|перевод)[ \t]+(` + numPat + `)`),
		pick: pickFirst,
	},
	{
		// Any two-decimal number, excluding "3 x 450.00" unit prices.
		name:          "two-decimals",
		re:            regexp.MustCompile(`([0-9][0-9 \x{00A0}\x{2009}]*(?:[.,][0-9]{3})*[.,][0-9]{2})(?:[^0-9]|$)`),
		pick:          pickLast,
		skipLineItems: true,
	},
	{
		name: "bare-number",
		re:   regexp.MustCompile(`(?:^|[^0-9.,])([0-9]{2,})(?:[^0-9.,]|$)`),
		pick: pickLast,
	},
}

// extractAmount runs the rule cascade over the text and returns the first
// rule's winning candidate, or nil when nothing plausible was found.
func extractAmount(text string) *float64 {
	for _, rule := range amountRules {
		candidates := rule.candidates(text)
		if len(candidates) == 0 {
			continue
		}
		var v float64
		switch rule.pick {
		case pickLargest:
			v = candidates[0]
			for _, c := range candidates[1:] {
				if c > v {
					v = c
				}
			}
		case pickLast:
			v = candidates[len(candidates)-1]
		default:
			v = candidates[0]
		}
		return &v
	}
	return nil
}

// candidates collects every valid amount the rule matches, in text order.
func (r amountRule) candidates(text string) []float64 {
	matches := r.re.FindAllStringSubmatchIndex(text, -1)
	var out []float64
	for _, m := range matches {
		start, end := m[2], m[3]
		if start < 0 {
			continue
		}
		if r.skipLineItems && precededByMultiplication(text, start) {
			continue
		}
		v, ok := parseAmount(text[start:end])
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

// precededByMultiplication reports whether the nearest non-space rune before
// pos is a multiplication glyph, marking the number as a unit price.
func precededByMultiplication(text string, pos int) bool {
	runes := []rune(text[:pos])
	for i := len(runes) - 1; i >= 0; i-- {
		c := runes[i]
		if c == ' ' || c == ' ' || c == '\t' {
			continue
		}
		return c == 'x' || c == 'X' || c == '×' || c == '*' || c == 'х' || c == 'Х'
	}
	return false
}

// parseAmount normalizes and validates a raw candidate. Calendar years
// (2020–2030) are a common false positive since receipts prominently print
// dates, so whole numbers in that range are rejected.
func parseAmount(raw string) (float64, bool) {
	normalized := NormalizeAmount(raw)
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if v == math.Trunc(v) && v >= 2020 && v <= 2030 {
		return 0, false
	}
	if v > 99_999_999 {
		return 0, false
	}
	return v, true
}

// NormalizeAmount converts a matched numeric string into canonical form:
// grouping spaces stripped, thousands separators removed, decimal mark
// rendered as a dot. It is idempotent: normalizing an already-normalized
// string returns it unchanged.
func NormalizeAmount(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c == ' ' || c == ' ' || c == ' ' || c == '\t' {
			continue
		}
		b.WriteRune(c)
	}
	s = b.String()

	lastSep := strings.LastIndexAny(s, ".,")
	if lastSep == -1 {
		return s
	}

	tail := s[lastSep+1:]
	if s[lastSep] == ',' && len(tail) == 3 && allDigits(tail) {
		// A comma followed by exactly three digits with no further
		// decimal part is a thousands separator, not a decimal mark.
		return stripSeparators(s, -1)
	}
	return stripSeparators(s, lastSep)
}

// stripSeparators removes every dot and comma except the one at decimalIdx,
// which is rewritten as a dot. A decimalIdx of -1 keeps none.
func stripSeparators(s string, decimalIdx int) string {
	var b strings.Builder
	for i, c := range s {
		if c == '.' || c == ',' {
			if i == decimalIdx {
				b.WriteByte('.')
			}
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func allDigits(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return s != ""
}
