package tui

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/datastore"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/mesh"
	"github.com/npratt/dandiatlas/internal/selection"
	"github.com/npratt/dandiatlas/internal/testutil"
)

// newFixtureTUI wires the browser to the in-memory atlas documents the same
// way the browse command wires it to a data directory.
func newFixtureTUI(t *testing.T, router *events.Router, opts ...Option) *TUI {
	t.Helper()
	src := testutil.NewAtlasSource()
	store := datastore.NewStore(src, slog.Default())
	load := func(ctx context.Context) (*datastore.Bundle, error) {
		return datastore.LoadBundle(ctx, store)
	}
	base := []Option{
		WithMeshFetcher(mesh.NewLoader(src)),
		WithElectrodeFetcher(datastore.NewElectrodeCache(store)),
		WithEngineOptions(app.WithRouter(router)),
		WithEvents(router.Subscribe()),
		WithChunkSize(3),
	}
	return New(context.Background(), load, append(base, opts...)...)
}

// TestTUILifecycleSmoke verifies the full bubbletea program lifecycle:
// load the atlas, draw the tree, follow a navigation and quit cleanly.
func TestTUILifecycleSmoke(t *testing.T) {
	router := events.NewRouter(256)
	defer router.Close()

	var quitHash string
	ui := newFixtureTUI(t, router,
		WithInitialHash("dandiset=001176"),
		WithOnQuit(func(h string) { quitHash = h }),
	)

	tm := teatest.NewTestModel(t, newModel(ui), teatest.WithInitialTermSize(120, 40))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("All Subjects"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyTab})
	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("subject=sub-01"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(model)
	if !ok {
		t.Fatalf("FinalModel returned %T", fm)
	}
	if st := final.engine.State(); st.Kind != selection.KindSubject || st.SubjectID != "sub-01" {
		t.Errorf("final state = %s %s, want subject sub-01", st.Kind, st.SubjectID)
	}
	if !strings.HasPrefix(quitHash, "dandiset=001176&subject=sub-01") {
		t.Errorf("quit hash = %q", quitHash)
	}
}

// TestTUILifecycleCtrlCQuit verifies that ctrl+c quits before the data is
// loaded.
func TestTUILifecycleCtrlCQuit(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	load := func(ctx context.Context) (*datastore.Bundle, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil, datastore.ErrDataFetch
	}

	var quitCalled bool
	ui := New(context.Background(), load, WithOnQuit(func(string) { quitCalled = true }))
	tm := teatest.NewTestModel(t, newModel(ui), teatest.WithInitialTermSize(80, 24))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	if fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second)); fm == nil {
		t.Fatal("FinalModel returned nil")
	}
	if !quitCalled {
		t.Error("quit callback was not invoked on ctrl+c")
	}
}

// TestTUILifecycleLoadFailure verifies the blocking error screen.
func TestTUILifecycleLoadFailure(t *testing.T) {
	src := testutil.NewAtlasSource()
	src.Remove(datastore.HierarchyDoc)
	store := datastore.NewStore(src, slog.Default())
	ui := New(context.Background(), func(ctx context.Context) (*datastore.Bundle, error) {
		return datastore.LoadBundle(ctx, store)
	})

	tm := teatest.NewTestModel(t, newModel(ui), teatest.WithInitialTermSize(100, 30))
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("could not be loaded"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))
}
