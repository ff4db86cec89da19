package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// currencySymbol maps a printed currency symbol to its ISO 4217 code.
// Multi-character symbols must sort before their prefixes ("S$" before "$"),
// so the table is an ordered slice, first match wins.
type currencySymbol struct {
	Symbol string
	Code   string
}

var currencySymbols = []currencySymbol{
	{"RM", "MYR"},
	{"S$", "SGD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
}

var (
	amountChars = regexp.MustCompile(`[^0-9.,\-]`)
	datePattern = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
)

// ParseCurrency scans text for a known currency symbol. It returns the ISO
// code and the text with the symbol stripped, or ("", text) when no symbol
// matches.
func ParseCurrency(text string) (string, string) {
	for _, cs := range currencySymbols {
		if idx := strings.Index(text, cs.Symbol); idx >= 0 {
			stripped := text[:idx] + text[idx+len(cs.Symbol):]
			return cs.Code, stripped
		}
	}
	return "", text
}

// MoneyAmount converts an entity's monetary value to a float amount. A
// structured money value wins: units + nanos/1e9. Otherwise the raw text is
// stripped down to numerals (commas treated as thousands separators) and
// parsed. Returns 0 when nothing numeric remains; never errors, because the
// input is untrusted OCR output and a single bad field must not lose the
// receipt.
func MoneyAmount(e Entity) float64 {
	if mv := e.money(); mv != nil {
		units, _ := strconv.ParseInt(mv.Units, 10, 64)
		return float64(units) + float64(mv.Nanos)/1e9
	}
	return amountFromText(e.normalizedText())
}

func amountFromText(text string) float64 {
	_, text = ParseCurrency(text)
	cleaned := amountChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return amount
}

// DateISO converts an entity's date to an ISO 8601 string (YYYY-MM-DD). A
// structured date value wins; otherwise a DD/MM/YYYY-family match on the raw
// text ("/" or "-" separators, 2-digit years assumed to be in the 2000s).
// With no usable date it falls back to today: the user is never blocked on a
// misread date, low confidence is surfaced separately.
func DateISO(e Entity) string {
	if dv := e.date(); dv != nil && dv.Year > 0 {
		return fmt.Sprintf("%04d-%02d-%02d", dv.Year, dv.Month, dv.Day)
	}
	if m := datePattern.FindStringSubmatch(e.normalizedText()); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if validDate(year, month, day) {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}
	return time.Now().Format("2006-01-02")
}

// validDate checks that year/month/day name a real calendar date. time.Date
// normalizes out-of-range components (Feb 31 becomes Mar 2), so a round trip
// that changes any component means the input was not a real date.
func validDate(year, month, day int) bool {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && t.Month() == time.Month(month) && t.Day() == day
}

// EntityCurrency returns the ISO currency code carried by an entity, from
// the structured money value when present, else from a symbol in the text.
func EntityCurrency(e Entity) string {
	if mv := e.money(); mv != nil && mv.CurrencyCode != "" {
		return mv.CurrencyCode
	}
	code, _ := ParseCurrency(e.normalizedText())
	return code
}
