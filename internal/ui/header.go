package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/reel/internal/state"
)

// renderHeader renders the status bar for the batch.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	snap := m.snapshot

	parts := []string{bg.Render("reel", styles.Logo)}
	if snap.BatchID != "" {
		parts = append(parts, bg.Render("batch", styles.FaintText)+bg.Space()+bg.Render(shortID(snap.BatchID), styles.MutedText))
	}
	total := len(snap.Records)
	parts = append(parts,
		bg.Render("Done:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d/%d", snap.Done, total), styles.SuccessText))
	if active := countActive(snap); active > 0 {
		parts = append(parts, bg.Render("Active:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", active), styles.InfoText))
	}
	if snap.Failed > 0 {
		parts = append(parts, bg.Render("Failed:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", snap.Failed), styles.DangerText))
	}
	switch {
	case snap.RunErr != nil:
		parts = append(parts, bg.Render("Stopped", styles.DangerText))
	case snap.Finished:
		parts = append(parts, bg.Render("Finished", styles.SuccessText))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  ") + sep)
}

// renderCommandBar renders the short key help.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	return styles.Footer.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func countActive(snap state.Snapshot) int {
	active := 0
	for _, rec := range snap.Records {
		switch rec.Phase {
		case state.PhaseSubmitted, state.PhaseQueued, state.PhaseRunning, state.PhaseFetching:
			active++
		}
	}
	return active
}

// shortID keeps the leading eight characters of a batch id, like a short git hash.
func shortID(id string) string {
	runes := []rune(id)
	if len(runes) <= 8 {
		return id
	}
	return string(runes[:8])
}
