package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// MemSource is an in-memory data source. It satisfies datastore.Source and
// records how often each document was opened.
type MemSource struct {
	mu     sync.Mutex
	files  map[string][]byte
	errs   map[string]error
	opens  map[string]int
	gate   chan struct{}
	opened chan string
}

// NewMemSource returns a source serving files.
func NewMemSource(files map[string]string) *MemSource {
	s := &MemSource{
		files: make(map[string][]byte, len(files)),
		errs:  make(map[string]error),
		opens: make(map[string]int),
	}
	for name, content := range files {
		s.files[name] = []byte(content)
	}
	return s
}

// Set adds or replaces a document.
func (s *MemSource) Set(name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = []byte(content)
}

// Fail makes opening name return err.
func (s *MemSource) Fail(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[name] = err
}

// Remove deletes a document.
func (s *MemSource) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, name)
}

// Hold blocks every Open until Release is called. Each blocked Open first
// announces its name on the returned channel.
func (s *MemSource) Hold() <-chan string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.opened = make(chan string, 64)
	return s.opened
}

// Release unblocks held opens.
func (s *MemSource) Release() {
	s.mu.Lock()
	gate := s.gate
	s.gate = nil
	s.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// Opens returns how many times name was opened.
func (s *MemSource) Opens(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[name]
}

// Open returns the named document.
func (s *MemSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens[name]++
	gate, opened := s.gate, s.opened
	s.mu.Unlock()

	if gate != nil {
		opened <- name
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[name]; ok {
		return nil, err
	}
	data, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// String implements fmt.Stringer.
func (s *MemSource) String() string { return "mem://fixture" }
