package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Legal-entity prefixes anchor merchant names on Kazakhstani receipts.
// OCR sometimes transliterates them into Latin look-alikes, so a secondary
// pattern recovers those and maps them back to the native prefix.
var (
	merchantCyrillicRe = regexp.MustCompile(`(ИП|ТОО|АО|ОАО|ООО)[ \t]+[«"']?([А-ЯЁӘҒҚҢӨҰҮҺІ][А-Яа-яЁёӘәҒғҚқҢңӨөҰұҮүҺһІі0-9 \-\.]{1,40})`)
	merchantLatinRe    = regexp.MustCompile(`\b(IP|TOO|AO|OAO|OOO)[ \t]+[«"']?([A-ZА-ЯЁ][A-Za-zА-Яа-яЁё0-9 \-\.]{1,40})`)
	merchantLabelRe    = regexp.MustCompile(`(?i)(?:продавец|магазин|компания)[ \t]*:[ \t]*([^\n]{2,60})`)
)

var latinPrefixes = map[string]string{
	"IP":  "ИП",
	"TOO": "ТОО",
	"AO":  "АО",
	"OAO": "ОАО",
	"OOO": "ООО",
}

func extractMerchant(text string) string {
	if m := merchantCyrillicRe.FindStringSubmatch(text); m != nil {
		return m[1] + " " + trimMerchant(m[2])
	}
	if m := merchantLatinRe.FindStringSubmatch(text); m != nil {
		return latinPrefixes[m[1]] + " " + trimMerchant(m[2])
	}
	if m := merchantLabelRe.FindStringSubmatch(text); m != nil {
		return trimMerchant(m[1])
	}
	return ""
}

func trimMerchant(s string) string {
	s = strings.Trim(s, ` "'»«.`)
	return strings.TrimSpace(s)
}

var (
	dateTimeRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})[ \t]+(\d{1,2}):(\d{2})\b`)
	dateOnlyRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// extractDate tries day.month.year hour:minute, then the date-only dotted
// form, then ISO year-month-day. Matches with invalid calendar values are
// discarded and extraction falls through to the next candidate.
func extractDate(text string) *time.Time {
	for _, m := range dateTimeRe.FindAllStringSubmatch(text, -1) {
		if t, ok := buildDate(m[3], m[2], m[1], m[4], m[5]); ok {
			return t
		}
	}
	for _, m := range dateOnlyRe.FindAllStringSubmatch(text, -1) {
		if t, ok := buildDate(m[3], m[2], m[1], "0", "0"); ok {
			return t
		}
	}
	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		if t, ok := buildDate(m[1], m[2], m[3], "0", "0"); ok {
			return t
		}
	}
	return nil
}

// buildDate validates the captured components by round-tripping through
// time.Date, which normalizes out-of-range values (day 32 becomes the 1st of
// the next month, which the comparison then rejects).
func buildDate(year, month, day, hour, minute string) (*time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)

	if h > 23 || mi > 59 {
		return nil, false
	}
	t := time.Date(y, time.Month(mo), d, h, mi, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return nil, false
	}
	return &t, true
}

var (
	bankReceiptNumberRe    = regexp.MustCompile(`(?i)(?:№[ \t]*чека|чек[ \t]*№|номер[ \t]+чека)[ \t]*[:=]?[ \t]*([A-Za-z0-9\-]{2,})`)
	genericReceiptNumberRe = regexp.MustCompile(`(?i)(?:чек|квитанция|receipt)?[ \t]*[#№][ \t]*([A-Za-z0-9\-]{2,})`)
)

func extractReceiptNumber(text string) string {
	if m := bankReceiptNumberRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := genericReceiptNumberRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
