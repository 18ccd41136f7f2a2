package partition

import (
	"fmt"
	"path"
	"strings"
)

// Layout maps keys onto object paths: <prefix>/<YYYY>/<MM>/<DD><ext>.
type Layout struct {
	Prefix    string
	Extension string
}

func (l Layout) Path(key Key) (string, error) {
	t := key.Time()
	if t.IsZero() {
		return "", fmt.Errorf("invalid partition key %q", key)
	}
	ext := l.Extension
	if ext == "" {
		ext = ".csv"
	}
	name := fmt.Sprintf("%04d/%02d/%02d%s", t.Year(), int(t.Month()), t.Day(), ext)
	return l.Resolve(name), nil
}

// Resolve joins a document name (index, items table) under the prefix.
func (l Layout) Resolve(name string) string {
	prefix := strings.Trim(l.Prefix, "/")
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
