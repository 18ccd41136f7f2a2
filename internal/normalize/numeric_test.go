package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float passthrough", 12.5, 12.5},
		{"int passthrough", 42, 42},
		{"json number", json.Number("7.25"), 7.25},
		{"plain", "123", 123},
		{"thousands", "1,234,567", 1234567},
		{"apostrophe guard", "'=1,000", 0},
		{"apostrophe number", "'1,000", 1000},
		{"parenthesized", "(123.45)", -123.45},
		{"unicode minus", "−42", -42},
		{"en dash", "–7", -7},
		{"em dash", "—3.5", -3.5},
		{"figure dash", "‒9", -9},
		{"double negative", "--5", -5},
		{"parenthesized negative", "(−5)", -5},
		{"whitespace", " 1 000 ", 1000},
		{"nbsp", "2 500", 2500},
		{"garbage", "abc", 0},
		{"empty", "", 0},
		{"nil", nil, 0},
		{"nan text", "NaN", 0},
		{"inf text", "Inf", 0},
		{"nan float", math.NaN(), 0},
		{"unsupported", struct{}{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.in))
		})
	}
}

func TestNumberIdempotent(t *testing.T) {
	inputs := []any{"1,234", "(5)", "−3", "--8", "'12", "junk", 3.75, -0.0, math.Inf(1), "1e308", "9e999"}
	for _, in := range inputs {
		once := Number(in)
		assert.Equal(t, once, Number(once), "input %v", in)
	}
}

func TestInt(t *testing.T) {
	assert.Equal(t, int64(1235), Int("1,234.6"))
	assert.Equal(t, int64(-50), Int("(50)"))
	assert.Equal(t, int64(math.MaxInt64), Int(1e30))
}

func TestShorthand(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1k", 1_000, true},
		{"1.5K", 1_500, true},
		{"1m", 1_000_000, true},
		{"1.1m", 1_100_000, true},
		{"2B", 2_000_000_000, true},
		{"250", 250, true},
		{"-3k", -3_000, true},
		{"1,200k", 1_200_000, true},
		{"", 0, false},
		{"k", 0, false},
		{"abc", 0, false},
		{"1.5x", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Shorthand(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShorthandRoundTrip(t *testing.T) {
	values := []int64{0, 999, 1_000, 1_500, 12_340, 250_000, 2_000_000, 2_750_000, 1_000_000_000, 3_210_000_000}
	for _, n := range values {
		formatted := FormatShorthand(float64(n))
		got, ok := Shorthand(formatted)
		assert.True(t, ok, formatted)
		assert.Equal(t, float64(n), got, "formatted=%s", formatted)
	}
}

func TestFormatShorthand(t *testing.T) {
	assert.Equal(t, "1.5k", FormatShorthand(1500))
	assert.Equal(t, "2m", FormatShorthand(2_000_000))
	assert.Equal(t, "-3.25b", FormatShorthand(-3_250_000_000))
	assert.Equal(t, "12", FormatShorthand(12))
}
