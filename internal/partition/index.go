package partition

import (
	"context"
	"fmt"

	"flipview/internal/logger"

	"github.com/tidwall/gjson"
)

// ParseIndex reads an index document of the form {"days":[{"date":"YYYY-MM-DD"}]}
// and returns its keys reversed (most recent first). A bare array of objects
// or date strings is accepted too. Entries without a usable date are skipped.
func ParseIndex(body []byte) ([]Key, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("partition index is not valid json")
	}
	root := gjson.ParseBytes(body)
	days := root.Get("days")
	if !days.Exists() && root.IsArray() {
		days = root
	}
	if !days.IsArray() {
		return nil, fmt.Errorf("partition index has no days array")
	}
	entries := days.Array()
	keys := make([]Key, 0, len(entries))
	seen := make(map[Key]struct{}, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		raw := indexEntryDate(entries[i])
		key, err := ParseKey(raw)
		if err != nil {
			logger.Debugf("[index] skip entry %d: %v", i, err)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

func indexEntryDate(entry gjson.Result) string {
	if entry.IsObject() {
		for _, field := range []string{"date", "day", "key"} {
			if v := entry.Get(field); v.Exists() {
				return v.String()
			}
		}
		return ""
	}
	return entry.String()
}

// LoadDocument fetches a JSON document stored next to the partitions.
func LoadDocument(ctx context.Context, store ObjectStore, path string) ([]byte, error) {
	obj, err := store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if looksLikeMarkup(obj) {
		return nil, fmt.Errorf("%s: %w", path, ErrMarkup)
	}
	return obj.Body, nil
}

// LoadIndex fetches and parses the index document at path.
func LoadIndex(ctx context.Context, store ObjectStore, path string) ([]Key, error) {
	body, err := LoadDocument(ctx, store, path)
	if err != nil {
		return nil, fmt.Errorf("partition index: %w", err)
	}
	return ParseIndex(body)
}
