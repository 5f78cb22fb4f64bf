package mesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrMeshFetch wraps every per-structure geometry failure: a missing file,
// an unreadable response or unparseable OBJ.
var ErrMeshFetch = errors.New("mesh fetch failed")

// DefaultChunkSize is the batch size of FetchChunked.
const DefaultChunkSize = 20

// Opener opens named documents of the data source.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Result is the outcome of fetching one mesh.
type Result struct {
	ID       int
	Geometry *Geometry
	Err      error
}

// Loader fetches region geometry by structure id.
type Loader struct {
	src         Opener
	path        func(id int) string
	concurrency int
	logger      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPathFunc sets the document path of a structure's mesh.
func WithPathFunc(fn func(id int) string) LoaderOption {
	return func(l *Loader) {
		l.path = fn
	}
}

// WithConcurrency bounds the number of in-flight fetches of Fetch.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger for fetch failures.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// DefaultPath returns meshes/{id}.obj.
func DefaultPath(id int) string {
	return fmt.Sprintf("meshes/%d.obj", id)
}

// NewLoader returns a loader reading from src.
func NewLoader(src Opener, opts ...LoaderOption) *Loader {
	l := &Loader{
		src:         src,
		path:        DefaultPath,
		concurrency: DefaultChunkSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FetchOne fetches and decodes the mesh of id. Errors wrap ErrMeshFetch.
func (l *Loader) FetchOne(ctx context.Context, id int) Result {
	rc, err := l.src.Open(ctx, l.path(id))
	if err != nil {
		return Result{ID: id, Err: fmt.Errorf("%w: structure %d: %w", ErrMeshFetch, id, err)}
	}
	defer func() { _ = rc.Close() }()

	g, err := DecodeOBJ(rc)
	if err != nil {
		return Result{ID: id, Err: fmt.Errorf("%w: structure %d: %w", ErrMeshFetch, id, err)}
	}
	return Result{ID: id, Geometry: g}
}

// Fetch fetches ids in parallel, at most the configured concurrency at a
// time. A failure of one id never aborts the others. Results are in the
// order of ids. Fetch returns early with ctx's error when it is cancelled;
// ids not yet fetched then carry that error.
func (l *Loader) Fetch(ctx context.Context, ids []int) ([]Result, error) {
	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, id := range ids {
		if ctx.Err() != nil {
			results[i] = Result{ID: id, Err: fmt.Errorf("%w: structure %d: %w", ErrMeshFetch, id, ctx.Err())}
			continue
		}
		i, id := i, id
		g.Go(func() error {
			res := l.FetchOne(ctx, id)
			if res.Err != nil {
				l.logger.Debug("mesh fetch failed", "structure", id, "error", res.Err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// ChunkFunc observes the progress of FetchChunked after each chunk.
type ChunkFunc func(done, total int, chunk []Result)

// FetchChunked fetches ids in chunks of size chunk. Chunks run one after
// another; the ids of a chunk are fetched in parallel. onChunk, if non-nil,
// runs after each chunk on the calling goroutine.
func (l *Loader) FetchChunked(ctx context.Context, ids []int, chunk int, onChunk ChunkFunc) ([]Result, error) {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	all := make([]Result, 0, len(ids))
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		res, err := l.Fetch(ctx, ids[start:end])
		all = append(all, res...)
		if onChunk != nil {
			onChunk(len(all), len(ids), res)
		}
		if err != nil {
			return all, err
		}
	}
	return all, nil
}
