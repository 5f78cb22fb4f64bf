package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// ErrMetadataFetch reports a failed best-effort lookup (dandiset titles,
// electrode coordinates). Callers log it and carry on.
var ErrMetadataFetch = errors.New("metadata fetch failed")

// Title client defaults.
const (
	DefaultTitleEndpoint  = "https://api.dandiarchive.org/api"
	DefaultTitleBatchSize = 10
	DefaultTitleTimeout   = 10 * time.Second
)

// TitleClient resolves dandiset titles from the archive API.
type TitleClient struct {
	endpoint  string
	client    *http.Client
	batchSize int
	logger    *slog.Logger
}

// TitleOption configures a TitleClient.
type TitleOption func(*TitleClient)

// WithTitleEndpoint sets the API base URL.
func WithTitleEndpoint(endpoint string) TitleOption {
	return func(c *TitleClient) {
		if endpoint != "" {
			c.endpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) TitleOption {
	return func(c *TitleClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBatchSize sets how many titles are requested concurrently.
func WithBatchSize(n int) TitleOption {
	return func(c *TitleClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithTitleLogger sets the logger.
func WithTitleLogger(logger *slog.Logger) TitleOption {
	return func(c *TitleClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewTitleClient returns a client against the public archive by default.
func NewTitleClient(opts ...TitleOption) *TitleClient {
	c := &TitleClient{
		endpoint:  DefaultTitleEndpoint,
		client:    &http.Client{Timeout: DefaultTitleTimeout},
		batchSize: DefaultTitleBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dandisetDoc struct {
	Published *struct {
		Name string `json:"name"`
	} `json:"most_recent_published_version"`
	Draft *struct {
		Name string `json:"name"`
	} `json:"draft_version"`
}

// FetchTitle returns the title of one dandiset: the latest published
// version's name, else the draft's. Every failure wraps ErrMetadataFetch.
func (c *TitleClient) FetchTitle(ctx context.Context, id string) (string, error) {
	url := fmt.Sprintf("%s/dandisets/%s/", c.endpoint, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: dandiset %s: %w", ErrMetadataFetch, id, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: dandiset %s: %w", ErrMetadataFetch, id, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: dandiset %s: status %s", ErrMetadataFetch, id, resp.Status)
	}

	var doc dandisetDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: dandiset %s: %w", ErrMetadataFetch, id, err)
	}
	switch {
	case doc.Published != nil && doc.Published.Name != "":
		return doc.Published.Name, nil
	case doc.Draft != nil && doc.Draft.Name != "":
		return doc.Draft.Name, nil
	}
	return "", fmt.Errorf("%w: dandiset %s: no version name", ErrMetadataFetch, id)
}

// FetchTitles resolves ids in batches. Failed lookups are logged and left
// out of the result; only context cancellation is returned as an error.
func (c *TitleClient) FetchTitles(ctx context.Context, ids []string) (map[string]string, error) {
	var (
		mu     sync.Mutex
		titles = make(map[string]string, len(ids))
	)
	for _, batch := range Batches(ids, c.batchSize) {
		if err := ctx.Err(); err != nil {
			return titles, err
		}
		var g errgroup.Group
		for _, id := range batch {
			id := id
			g.Go(func() error {
				title, err := c.FetchTitle(ctx, id)
				if err != nil {
					c.logger.Debug("title lookup failed", "dandiset", id, "error", err)
					return nil
				}
				mu.Lock()
				titles[id] = title
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
	return titles, ctx.Err()
}

// Batches splits ids into consecutive runs of at most size.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
