package partition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxObjectBytes = 64 << 20

// HTTPStore reads objects from a static file host or CDN.
type HTTPStore struct {
	baseURL *url.URL
	client  *http.Client
}

func NewHTTPStore(base string, timeout time.Duration) (*HTTPStore, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("http store: base url cannot be empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("http store: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http store: unsupported scheme %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPStore{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPStore) Name() string { return "http" }

func (s *HTTPStore) Get(ctx context.Context, path string) (Object, error) {
	target := s.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Object{}, err
	}
	req.Header.Set("Accept", "text/csv, application/json;q=0.9, */*;q=0.5")
	resp, err := s.client.Do(req)
	if err != nil {
		return Object{}, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Object{}, fmt.Errorf("%s: %w", path, ErrObjectNotFound)
	case resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Object{}, &StatusError{Store: s.Name(), Path: path, Code: resp.StatusCode}
	}
	body, err := readObject(resp.Body, maxObjectBytes)
	if err != nil {
		return Object{}, fmt.Errorf("%s: reading body: %w", path, err)
	}
	return Object{
		Path:        path,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
