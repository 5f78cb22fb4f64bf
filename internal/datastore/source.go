// Package datastore reads the atlas data documents, region meshes, electrode
// coordinates and dandiset titles from a local directory or an HTTP base
// URL.
package datastore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Source opens data documents by slash-separated path relative to the data
// root. Missing documents return an error wrapping fs.ErrNotExist.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// NewSource returns an HTTPSource for http(s) URLs and a DirSource
// otherwise.
func NewSource(location string, timeout time.Duration) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, &http.Client{Timeout: timeout})
	}
	return DirSource{Root: location}
}

// DirSource reads documents from a local directory.
type DirSource struct {
	Root string
}

// Open opens root/name.
func (d DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := path.Clean("/" + name)
	f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// String implements fmt.Stringer.
func (d DirSource) String() string { return d.Root }

// HTTPSource reads documents below a base URL.
type HTTPSource struct {
	base   *url.URL
	raw    string
	client *http.Client
}

// NewHTTPSource returns a source rooted at base. A nil client uses
// http.DefaultClient.
func NewHTTPSource(base string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		u = &url.URL{}
	}
	return &HTTPSource{base: u, raw: base, client: client}
}

// Open issues GET base/name. 404 responses wrap fs.ErrNotExist.
func (h *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	ref, err := url.Parse(strings.TrimPrefix(name, "/"))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	target := h.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("open %s: unexpected status %s", name, resp.Status)
	}
	return resp.Body, nil
}

// String implements fmt.Stringer.
func (h *HTTPSource) String() string { return h.raw }
