package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/reel/internal/state"
)

const (
	indexWidth        = 4
	modelWidth        = 22
	phaseWidth        = 11
	elapsedWidth      = 8
	detailHeaderLines = 3
)

// progressWidth sizes the per-row bar from what the fixed columns leave.
func progressWidth(width int) int {
	fixed := indexWidth + modelWidth + phaseWidth + elapsedWidth + 8
	return max(10, min(40, width-fixed-20))
}

// renderQueue renders one line per record.
func (m Model) renderQueue() string {
	styles := m.theme.Styles()
	now := time.Now()
	lines := make([]string, 0, len(m.snapshot.Records))
	for i, rec := range m.snapshot.Records {
		phase := styles.StatusStyle(string(rec.Phase)).Render(padRight(titleCase(string(rec.Phase)), phaseWidth-2))
		line := strings.Join([]string{
			padRight(fmt.Sprintf("#%d", rec.Index), indexWidth),
			padRight(truncate(rec.Model, modelWidth), modelWidth),
			phase,
			m.bar.ViewAs(float64(rowProgress(rec)) / 100),
			padRight(formatElapsed(rec.Elapsed(now)), elapsedWidth),
			rowNote(rec),
		}, " ")
		if i == m.selected {
			line = styles.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return styles.MutedText.Render("No records")
	}
	return strings.Join(lines, "\n")
}

// renderDetail renders the selected record's identifiers and its log tail.
func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	rec, ok := m.selectedRecord()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("Record #%d", rec.Index)))
	if rec.RequestID != "" {
		b.WriteString(styles.MutedText.Render("  request " + rec.RequestID))
	}
	b.WriteString("\n")
	switch {
	case rec.Err != nil:
		b.WriteString(styles.DangerText.Render(truncate(rec.Err.Error(), max(20, m.width))))
	case rec.Artifact != nil:
		b.WriteString(styles.SuccessText.Render(truncateMiddle(rec.Artifact.URL, max(20, m.width))))
	case rec.QueuePosition != nil:
		b.WriteString(styles.WarningText.Render(fmt.Sprintf("queue position %d", *rec.QueuePosition)))
	default:
		b.WriteString(styles.FaintText.Render(string(rec.Status)))
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", max(1, m.width))))
	b.WriteString("\n")
	b.WriteString(m.logs.View())
	return b.String()
}

// updateLogs loads the selected record's log tail into the viewport.
func (m *Model) updateLogs() {
	rec, ok := m.selectedRecord()
	if !ok {
		m.logs.SetContent("")
		return
	}
	atBottom := m.logs.AtBottom()
	m.logs.SetContent(strings.Join(rec.Logs, "\n"))
	if atBottom {
		m.logs.GotoBottom()
	}
}

func (m Model) selectedRecord() (state.RecordState, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Records) {
		return state.RecordState{}, false
	}
	return m.snapshot.Records[m.selected], true
}

func rowProgress(rec state.RecordState) int {
	if rec.Phase == state.PhaseDone {
		return 100
	}
	if !rec.HasProgress {
		return 0
	}
	return rec.Progress
}

func rowNote(rec state.RecordState) string {
	switch {
	case rec.Err != nil:
		return truncate(rec.Err.Error(), 48)
	case rec.QueuePosition != nil:
		return fmt.Sprintf("queue #%d", *rec.QueuePosition)
	case rec.Retries > 0:
		return fmt.Sprintf("%d retries", rec.Retries)
	case rec.RequestID != "":
		return rec.RequestID
	}
	return ""
}
