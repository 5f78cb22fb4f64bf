package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// StateBufferSize is the recommended buffer size for state sink
// subscriptions.
const StateBufferSize = 1000

// CurrentStateVersion is the state file format version. Increment it on
// incompatible changes to ViewState.
const CurrentStateVersion = 1

// MaxRecent bounds the recent navigation list.
const MaxRecent = 20

// ViewState is the persisted browser position, used to resume the last
// view and to list recent navigations.
type ViewState struct {
	Version   int       `json:"version"`
	LastHash  string    `json:"last_hash"`
	Recent    []string  `json:"recent,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultMinSaveDelay is the minimum time between debounced saves.
const DefaultMinSaveDelay = 2 * time.Second

// StateSink persists the browser position to a JSON file.
type StateSink struct {
	path     string
	state    *ViewState
	dirty    bool
	mu       sync.Mutex
	done     chan struct{}
	lastSave time.Time
	minDelay time.Duration
	errOut   io.Writer
}

// NewStateSink creates a StateSink writing to path.
func NewStateSink(path string) *StateSink {
	return &StateSink{
		path:     path,
		state:    &ViewState{Version: CurrentStateVersion},
		done:     make(chan struct{}),
		minDelay: DefaultMinSaveDelay,
		errOut:   os.Stderr,
	}
}

// Start loads any existing state and processes events in the background.
func (s *StateSink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		close(s.done)
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		close(s.done)
		return fmt.Errorf("load state: %w", err)
	}

	go s.run(ctx, events)
	return nil
}

func (s *StateSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.flushIfDirty()
			return
		case event, ok := <-events:
			if !ok {
				s.flushIfDirty()
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *StateSink) handleEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case *SelectionChangedEvent:
		s.visitLocked(e.Hash)
	case *NavigationEvent:
		if e.Error == "" {
			s.visitLocked(e.Hash)
		}
	case *SessionEndEvent:
		if s.dirty {
			s.saveUnlocked()
		}
		return
	}

	if s.dirty && time.Since(s.lastSave) >= s.minDelay {
		s.saveUnlocked()
	}
}

// visitLocked records hash as the current position. The default view is
// remembered as the last hash but not listed as recent.
func (s *StateSink) visitLocked(hash string) {
	if s.state.LastHash == hash {
		return
	}
	s.state.LastHash = hash
	s.dirty = true
	if hash == "" {
		return
	}
	recent := []string{hash}
	for _, h := range s.state.Recent {
		if h != hash && len(recent) < MaxRecent {
			recent = append(recent, h)
		}
	}
	s.state.Recent = recent
}

func (s *StateSink) saveUnlocked() {
	s.state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		fmt.Fprintf(s.errOut, "state sink: marshal error: %v\n", err)
		return
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		fmt.Fprintf(s.errOut, "state sink: write error: %v\n", err)
		return
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		fmt.Fprintf(s.errOut, "state sink: rename error: %v\n", err)
		return
	}

	s.dirty = false
	s.lastSave = time.Now()
}

func (s *StateSink) flushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.saveUnlocked()
	}
}

// Stop waits for the run goroutine, which flushes pending state.
func (s *StateSink) Stop() error {
	<-s.done
	return nil
}

// Load reads the state file. Corrupt or incompatible files are moved to
// .backup and replaced by a fresh state.
func (s *StateSink) Load() error {
	st, err := ReadViewState(s.path)
	if err != nil && os.IsNotExist(err) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if backupErr := os.Rename(s.path, s.path+".backup"); backupErr != nil {
			slog.Warn("state file unreadable, failed to backup",
				"path", s.path, "error", err, "backup_error", backupErr)
		} else {
			slog.Warn("state file unreadable, backed up and starting fresh",
				"path", s.path, "error", err)
		}
		s.state = &ViewState{Version: CurrentStateVersion}
		return nil
	}
	s.state = st
	return nil
}

// ReadViewState reads a state file written by StateSink.
func ReadViewState(path string) (*ViewState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st ViewState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.Version != CurrentStateVersion {
		return nil, fmt.Errorf("state version %d, want %d", st.Version, CurrentStateVersion)
	}
	return &st, nil
}

// State returns a copy of the current state.
func (s *StateSink) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *s.state
	st.Recent = append([]string(nil), s.state.Recent...)
	return st
}

// Path returns the state file path.
func (s *StateSink) Path() string {
	return s.path
}

// SetMinDelay sets the minimum delay between saves.
func (s *StateSink) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}
