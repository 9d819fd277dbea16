// Package format renders dates and money amounts for pages and CSV exports.
package format

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is used for every date shown or accepted by the app.
const DateLayout = "2006-01-02"

// DefaultCurrency is appended to formatted amounts.
const DefaultCurrency = "€"

// ErrBadAmount is returned by ParseMoney for input that is not a money amount.
var ErrBadAmount = errors.New("not a valid amount")

// Date formats t, or returns "" for nil or zero times.
func Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate reads a DateLayout date. Blank input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Money formats cents as "1.234,50 €".
func Money(cents int64) string { return MoneyWith(cents, DefaultCurrency) }

// MoneyWith formats cents with the given currency symbol. An empty symbol
// omits the suffix.
func MoneyWith(cents int64, symbol string) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	frac := cents % 100
	b.WriteByte(',')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	if symbol != "" {
		b.WriteByte(' ')
		b.WriteString(symbol)
	}
	return b.String()
}

// maxWholeUnits keeps whole*100+99 within int64.
const maxWholeUnits = (math.MaxInt64 - 99) / 100

// ParseMoney reads an amount typed into a form ("12", "12,5", "12.50",
// "1.234,50") and returns cents. The last ',' or '.' followed by one or two
// digits is the decimal separator. Other separators group the whole part in
// threes. Only a single leading '-' is accepted as a sign.
func ParseMoney(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), DefaultCurrency))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, ErrBadAmount
	}

	whole, frac := s, ""
	if i := strings.LastIndexAny(s, ",."); i >= 0 && len(s)-i-1 <= 2 {
		whole, frac = s[:i], s[i+1:]
		if frac == "" || !allDigits(frac) {
			return 0, ErrBadAmount
		}
	}
	digits, ok := ungroup(whole)
	if !ok {
		return 0, ErrBadAmount
	}
	if digits == "" {
		if frac == "" {
			return 0, ErrBadAmount
		}
		digits = "0"
	}
	if len(frac) == 1 {
		frac += "0"
	}
	if frac == "" {
		frac = "00"
	}

	w, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || w > maxWholeUnits {
		return 0, ErrBadAmount
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}

// ungroup strips grouping separators from whole. Every group after the
// first must hold exactly three digits.
func ungroup(whole string) (string, bool) {
	if whole == "" {
		return "", true
	}
	groups := strings.FieldsFunc(whole, func(r rune) bool { return r == '.' || r == ',' || r == ' ' })
	if len(groups) == 0 {
		return "", false
	}
	// FieldsFunc drops empty fields, so compare lengths to catch doubled,
	// leading or trailing separators.
	sep := 0
	for _, r := range whole {
		if r == '.' || r == ',' || r == ' ' {
			sep++
		}
	}
	if sep != len(groups)-1 {
		return "", false
	}
	for i, g := range groups {
		if !allDigits(g) || (i > 0 && len(g) != 3) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
