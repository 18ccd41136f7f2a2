package partition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrObjectNotFound reports that the store has no object at the requested path.
var ErrObjectNotFound = errors.New("object not found")

// ErrObjectTooLarge reports an object bigger than the store read limit.
var ErrObjectTooLarge = errors.New("object exceeds size limit")

// Object is a fetched document.
type Object struct {
	Path        string
	ContentType string
	Body        []byte
}

// ObjectStore serves partition files and JSON documents by path.
type ObjectStore interface {
	Get(ctx context.Context, path string) (Object, error)
	Name() string
}

// StatusError carries a non-success response that is not a plain "missing".
type StatusError struct {
	Store string
	Path  string
	Code  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", e.Store, e.Path, e.Code)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	switch {
	case e.Code >= 500:
		return true
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// IsTransient classifies a store error. Missing objects and permanent status
// errors are not transient; anything else (connection failures, timeouts,
// 5xx) is.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrObjectTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}

// readObject reads r fully, failing instead of truncating past limit bytes.
func readObject(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrObjectTooLarge, limit)
	}
	return data, nil
}
