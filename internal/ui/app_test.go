package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/lifecycle"
	"github.com/five82/reel/internal/state"
)

func newStore(n int) *state.Store {
	recs := make([]lifecycle.GenerationRequest, n)
	for i := range recs {
		recs[i].Model = fal.ModelFabric
	}
	return state.NewStore("batch-123456789", recs)
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model)
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestViewBeforeResize(t *testing.T) {
	m := New(Options{Store: newStore(1)})
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View() = %q, want Loading...", got)
	}
}

func TestViewRendersRecords(t *testing.T) {
	store := newStore(2)
	store.Observe(lifecycle.Event{Kind: lifecycle.EventSubmitted, Index: 0, RequestID: "req-0001"})
	store.Observe(lifecycle.Event{Kind: lifecycle.EventStatus, Index: 0, Status: fal.StatusInProgress, Message: "Diffusing: 40%"})
	store.Observe(lifecycle.Event{Kind: lifecycle.EventProgress, Index: 0, Progress: 40})
	store.Observe(lifecycle.Event{Kind: lifecycle.EventFailed, Index: 1, Err: errors.New("Image URL is required")})

	m := sized(t, New(Options{Store: store}))
	m, _ = apply(t, m, snapshotMsg(store.Snapshot()))
	view := m.View()

	for _, want := range []string{"reel", "batch-12", "Done: 0/2", "Failed: 1", "#0", "Running", "Failed", "Image URL is required", "req-0001", "Diffusing: 40%"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q\n%s", want, view)
		}
	}
}

func TestSelectionMovesAndClamps(t *testing.T) {
	store := newStore(3)
	m := sized(t, New(Options{Store: store}))
	m, _ = apply(t, m, snapshotMsg(store.Snapshot()))

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 2 {
		t.Fatalf("selected = %d, want 2", m.selected)
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	if m.selected != 0 {
		t.Fatalf("selected after g = %d, want 0", m.selected)
	}
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Fatalf("selected moved above first row: %d", m.selected)
	}
}

func TestQuitCancelsUnfinishedBatch(t *testing.T) {
	store := newStore(1)
	cancelled := false
	m := sized(t, New(Options{Store: store, Cancel: func() { cancelled = true }}))
	m, _ = apply(t, m, snapshotMsg(store.Snapshot()))

	_, cmd := apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !isQuit(cmd) {
		t.Fatal("q should quit")
	}
	if !cancelled {
		t.Fatal("quitting an unfinished batch should cancel it")
	}
}

func TestFinishedSnapshotQuits(t *testing.T) {
	store := newStore(1)
	store.Finish(nil)
	cancelled := false
	m := sized(t, New(Options{Store: store, Cancel: func() { cancelled = true }}))

	m, cmd := apply(t, m, snapshotMsg(store.Snapshot()))
	if !isQuit(cmd) {
		t.Fatal("finished batch should quit the monitor")
	}
	if _, cmd := apply(t, m, tickMsg{}); cmd != nil {
		t.Fatal("ticks after quitting should not schedule more work")
	}
	if cancelled {
		t.Fatal("finished batch should not be cancelled")
	}
}

func TestCycleThemeReportsName(t *testing.T) {
	var got string
	m := sized(t, New(Options{Store: newStore(1), ThemeName: "Nightfox", OnThemeChange: func(name string) { got = name }}))

	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'T'}})
	if m.theme.Name != "Kanagawa" || got != "Kanagawa" {
		t.Fatalf("theme = %q, callback = %q, want Kanagawa", m.theme.Name, got)
	}
}

func TestHelpToggle(t *testing.T) {
	m := sized(t, New(Options{Store: newStore(1)}))
	m, _ = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if !m.help.ShowAll || !strings.Contains(m.View(), "scroll logs") {
		t.Fatalf("full help not shown:\n%s", m.View())
	}
}
