// Package normalize converts loosely formatted numeric text into canonical values.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var dashReplacer = strings.NewReplacer(
	"−", "-", // minus sign
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"﹣", "-", // small hyphen-minus
	"－", "-", // fullwidth hyphen-minus
)

// Number converts raw into a float64. Numeric inputs pass through unchanged;
// text is cleaned (formula guard apostrophe, accounting parentheses, unicode
// dashes, thousands separators, repeated minus signs) and parsed. Anything
// unparseable or non-finite yields 0.
func Number(raw any) float64 {
	switch t := raw.(type) {
	case nil:
		return 0
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case uint64:
		return float64(t)
	case uint32:
		return float64(t)
	case json.Number:
		return Number(t.String())
	case string:
		f, err := strconv.ParseFloat(Clean(t), 64)
		if err != nil {
			return 0
		}
		return finite(f)
	default:
		return 0
	}
}

// Int rounds Number(raw) to the nearest integer, saturating at the int64 range.
func Int(raw any) int64 {
	f := math.Round(Number(raw))
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Clean applies the textual rewrite rules of Number without parsing.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = "-" + s[1:len(s)-1]
	}
	s = dashReplacer.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	seenMinus := false
	for _, r := range s {
		switch {
		case r == ',' || unicode.IsSpace(r):
			continue
		case r == '-':
			if seenMinus {
				continue
			}
			seenMinus = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

var shorthandScale = map[byte]decimal.Decimal{
	'k': decimal.New(1, 3),
	'm': decimal.New(1, 6),
	'b': decimal.New(1, 9),
}

// Shorthand parses values such as "250k", "1.5M" or "2b". A missing suffix is
// accepted as a plain number. ok is false when raw is empty or unparseable, so
// callers can tell "absent" from zero.
func Shorthand(raw string) (value float64, ok bool) {
	d, ok := ShorthandDecimal(raw)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ShorthandDecimal is Shorthand with exact decimal scaling.
func ShorthandDecimal(raw string) (decimal.Decimal, bool) {
	s := Clean(raw)
	if s == "" {
		return decimal.Zero, false
	}
	scale := decimal.New(1, 0)
	last := s[len(s)-1] | 0x20
	if mul, found := shorthandScale[last]; found {
		scale = mul
		s = s[:len(s)-1]
	}
	if s == "" || s == "-" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Mul(scale), true
}

// FormatShorthand renders v with the largest fitting k/m/b suffix, rounded to
// two decimals, e.g. 1500 -> "1.5k", 2000000 -> "2m".
func FormatShorthand(v float64) string {
	d := decimal.NewFromFloat(finite(v))
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(shorthandScale['b']):
		return d.Div(shorthandScale['b']).Round(2).String() + "b"
	case abs.GreaterThanOrEqual(shorthandScale['m']):
		return d.Div(shorthandScale['m']).Round(2).String() + "m"
	case abs.GreaterThanOrEqual(shorthandScale['k']):
		return d.Div(shorthandScale['k']).Round(2).String() + "k"
	default:
		return d.Round(2).String()
	}
}
