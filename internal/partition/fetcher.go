package partition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"flipview/internal/logger"
	"flipview/internal/pkg/circuit"
	"flipview/internal/types"
)

// OutcomeKind classifies a single partition fetch.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeNotFound
	OutcomeTransient
	OutcomeParseError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransient:
		return "transient_error"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one fetch attempt. Records is only set for OutcomeOK.
type Outcome struct {
	Key     Key
	Kind    OutcomeKind
	Records []types.Record
	Err     error
}

// ErrMarkup marks a payload that parsed as HTML instead of row data.
var ErrMarkup = errors.New("payload is markup, not row data")

// Fetcher performs one network fetch per call and decodes the payload.
type Fetcher struct {
	store   ObjectStore
	layout  Layout
	breaker *circuit.CircuitBreaker
}

type FetcherOption func(*Fetcher)

// WithBreaker guards the store with cb; transient failures count against it.
func WithBreaker(cb *circuit.CircuitBreaker) FetcherOption {
	return func(f *Fetcher) { f.breaker = cb }
}

func NewFetcher(store ObjectStore, layout Layout, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{store: store, layout: layout}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Fetcher) Store() ObjectStore { return f.store }

func (f *Fetcher) Layout() Layout { return f.layout }

// Fetch retrieves and decodes the partition for key. It never returns an
// error directly: failures are encoded in the Outcome.
func (f *Fetcher) Fetch(ctx context.Context, key Key) Outcome {
	out := Outcome{Key: key}
	path, err := f.layout.Path(key)
	if err != nil {
		out.Kind, out.Err = OutcomeParseError, err
		return out
	}

	var obj Object
	get := func() error {
		var getErr error
		obj, getErr = f.store.Get(ctx, path)
		return getErr
	}
	if f.breaker != nil {
		err = f.breaker.Guard(get, func(err error) bool {
			return !callerGone(ctx, err) && IsTransient(err)
		})
	} else {
		err = get()
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrObjectNotFound):
		out.Kind, out.Err = OutcomeNotFound, err
		return out
	case errors.Is(err, circuit.ErrOpen), IsTransient(err):
		out.Kind, out.Err = OutcomeTransient, err
		return out
	default:
		out.Kind, out.Err = OutcomeParseError, err
		return out
	}

	if looksLikeMarkup(obj) {
		out.Kind, out.Err = OutcomeParseError, fmt.Errorf("%s: %w", path, ErrMarkup)
		return out
	}
	records, err := DecodeRows(key, obj.Body)
	if err != nil {
		out.Kind, out.Err = OutcomeParseError, fmt.Errorf("%s: %w", path, err)
		return out
	}
	logger.Debugf("[fetch] %s -> %d records (%s)", key, len(records), f.store.Name())
	out.Kind = OutcomeOK
	out.Records = records
	return out
}

// callerGone reports whether err comes from the caller's own context ending
// rather than from the store.
func callerGone(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

func looksLikeMarkup(obj Object) bool {
	if strings.Contains(strings.ToLower(obj.ContentType), "html") {
		return true
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(obj.Body, []byte("\xef\xbb\xbf")))
	return len(trimmed) > 0 && trimmed[0] == '<'
}
