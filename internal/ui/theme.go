package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette. StatusColors maps a record phase to the badge
// color drawn in the queue.
type Theme struct {
	Name string

	Background string
	Surface    string
	Selection  string
	Text       string
	Muted      string
	Faint      string
	Accent     string
	Success    string
	Warning    string
	Danger     string
	Info       string

	StatusColors map[string]string
}

// withPhases fills StatusColors from the palette plus a color for submitted.
func (t Theme) withPhases(submitted string) Theme {
	t.StatusColors = map[string]string{
		"pending":   t.Faint,
		"submitted": submitted,
		"queued":    t.Warning,
		"running":   t.Accent,
		"fetching":  t.Info,
		"done":      t.Success,
		"failed":    t.Danger,
	}
	return t
}

// Styles holds the lipgloss styles the views render with.
type Styles struct {
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	statusColors map[string]string
	background   string
	muted        string
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles builds the style set for t.
func (t Theme) Styles() Styles {
	return Styles{
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Footer:   fg(t.Muted).Background(lipgloss.Color(t.Surface)).Padding(0, 1),
		Logo:     fg(t.Warning).Bold(true),
		Selected: fg(t.Text).Background(lipgloss.Color(t.Selection)),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns the badge style for a phase. Unknown phases use the
// muted color.
func (s Styles) StatusStyle(phase string) lipgloss.Style {
	color, ok := s.statusColors[phase]
	if !ok {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground returns s with every style drawn on bgColor.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	for _, st := range []*lipgloss.Style{
		&out.MutedText, &out.FaintText, &out.AccentText, &out.SuccessText,
		&out.WarningText, &out.DangerText, &out.InfoText,
		&out.Footer, &out.Logo, &out.Selected,
	} {
		*st = st.Background(bg)
	}
	return out
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

var themes = map[string]Theme{
	// https://github.com/EdenEast/nightfox.nvim
	"Nightfox": Theme{
		Name: "Nightfox", Background: "#131a24", Surface: "#192330", Selection: "#2b3b51",
		Text: "#cdcecf", Muted: "#738091", Faint: "#71839b",
		Accent: "#719cd6", Success: "#81b29a", Warning: "#dbc074", Danger: "#c94f6d", Info: "#63cdcf",
	}.withPhases("#9d79d6"),

	// https://github.com/rebelot/kanagawa.nvim
	"Kanagawa": Theme{
		Name: "Kanagawa", Background: "#16161D", Surface: "#1F1F28", Selection: "#2D4F67",
		Text: "#DCD7BA", Muted: "#C8C093", Faint: "#727169",
		Accent: "#7E9CD8", Success: "#98BB6C", Warning: "#E6C384", Danger: "#E46876", Info: "#7FB4CA",
	}.withPhases("#957FB8"),

	// Tailwind slate and sky
	"Slate": Theme{
		Name: "Slate", Background: "#020617", Surface: "#0f172a", Selection: "#0284c7",
		Text: "#f1f5f9", Muted: "#94a3b8", Faint: "#64748b",
		Accent: "#38bdf8", Success: "#22c55e", Warning: "#f59e0b", Danger: "#ef4444", Info: "#06b6d4",
	}.withPhases("#0284c7"),
}

// GetTheme returns the named theme, or Nightfox for an unknown name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[themeOrder[0]]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	return themeOrder
}
