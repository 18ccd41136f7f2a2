// Package partition locates, fetches and decodes the daily flip partitions.
package partition

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the canonical date key format, e.g. "01-15-2024".
const KeyLayout = "01-02-2006"

var keyInputLayouts = []string{
	KeyLayout,
	"2006-01-02",
	"2006/01/02",
	"2006-01-02T15:04:05Z07:00",
}

// Key identifies one daily partition.
type Key string

// ParseKey accepts MM-DD-YYYY, YYYY-MM-DD, YYYY/MM/DD or an RFC3339 timestamp.
func ParseKey(raw string) (Key, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return "", err
	}
	return KeyFromTime(t), nil
}

// ParseDate parses raw with the key input layouts and returns UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range keyInputLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func KeyFromTime(t time.Time) Key {
	return Key(t.UTC().Format(KeyLayout))
}

// Time returns the partition day at UTC midnight, or the zero time for an invalid key.
func (k Key) Time() time.Time {
	t, err := time.Parse(KeyLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (k Key) Valid() bool {
	return !k.Time().IsZero()
}

func (k Key) String() string { return string(k) }

// Span enumerates the days between from and to inclusive, most recent first.
// At most limit keys are returned when limit > 0.
func Span(from, to time.Time, limit int) []Key {
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		from, to = to, from
	}
	var out []Key
	for day := to; !day.Before(from); day = day.AddDate(0, 0, -1) {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, KeyFromTime(day))
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
