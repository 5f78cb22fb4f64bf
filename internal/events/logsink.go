package events

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// DefaultLogBackups is how many rotated session logs are kept.
const DefaultLogBackups = 5

// backupStamp names rotated logs; it sorts chronologically as text.
const backupStamp = "2006-01-02T15-04-05.000"

// LogSink writes one JSON line per event to a session log. Each Start
// begins a fresh file; the previous session is kept as a .bak.
type LogSink struct {
	path       string
	maxBackups int
	errOut     io.Writer

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	written int
	done    chan struct{}
}

// LogSinkOption configures a LogSink.
type LogSinkOption func(*LogSink)

// WithMaxBackups sets how many rotated logs survive a rotation. Zero or
// less keeps every backup.
func WithMaxBackups(n int) LogSinkOption {
	return func(s *LogSink) { s.maxBackups = n }
}

// WithErrorOutput sets where write failures are reported. Defaults to
// stderr.
func WithErrorOutput(w io.Writer) LogSinkOption {
	return func(s *LogSink) { s.errOut = w }
}

// NewLogSink creates a LogSink that writes to path.
func NewLogSink(path string, opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		path:       path,
		maxBackups: DefaultLogBackups,
		errOut:     os.Stderr,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start rotates the previous session log, opens a fresh one and writes
// events until ctx is done or the channel is closed.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	if err := s.open(); err != nil {
		close(s.done)
		return err
	}
	go s.run(ctx, events)
	return nil
}

func (s *LogSink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := s.rotate(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	s.mu.Lock()
	s.file = file
	s.encoder = json.NewEncoder(file)
	s.mu.Unlock()
	return nil
}

// rotate moves a non-empty log aside and prunes the oldest backups. The
// live path is always a new file, so `dandiatlas events --follow` tails
// only the current session.
func (s *LogSink) rotate() error {
	info, err := os.Stat(s.path)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("stat log file: %w", err)
	case info.Size() == 0:
		return nil
	}

	bak := fmt.Sprintf("%s.%s.bak", s.path, time.Now().Format(backupStamp))
	if err := os.Rename(s.path, bak); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	s.prune()
	return nil
}

// prune removes all but the newest maxBackups rotated logs. Failures are
// reported and otherwise ignored.
func (s *LogSink) prune() {
	if s.maxBackups <= 0 {
		return
	}
	baks, err := filepath.Glob(s.path + ".*.bak")
	if err != nil || len(baks) <= s.maxBackups {
		return
	}
	sort.Strings(baks)
	for _, old := range baks[:len(baks)-s.maxBackups] {
		if err := os.Remove(old); err != nil {
			fmt.Fprintf(s.errOut, "log sink: cannot remove old log %s: %v\n", old, err)
		}
	}
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.write(ev)
		}
	}
}

func (s *LogSink) write(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.encoder == nil {
		return
	}
	if err := s.encoder.Encode(ev); err != nil {
		fmt.Fprintf(s.errOut, "log sink: dropping %s event: %v\n", ev.Type(), err)
		return
	}
	s.written++
}

// Written returns how many events reached the file.
func (s *LogSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Stop waits for the writer goroutine and closes the file.
func (s *LogSink) Stop() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.encoder = nil
	return err
}

// Path returns the log file path.
func (s *LogSink) Path() string {
	return s.path
}
