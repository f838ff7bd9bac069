package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tailmerge/internal/logtail"
)

// Theme defines colors and styles for the viewer.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Header and status bars
	FocusBg    string // Log body

	SelectionBg   string
	SelectionText string

	Border string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// LevelColors maps a level name (see logtail.Level) to a foreground.
	LevelColors map[string]string

	// SourceColors are handed out to sources by handle, wrapping around.
	SourceColors []string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		levelColors:  t.LevelColors,
		sourceColors: t.SourceColors,
		text:         t.Text,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style

	levelColors  map[string]string
	sourceColors []string
	text         string
}

// LevelStyle returns the foreground style for a line of the given level.
// Lines without a recognized level use the plain text color.
func (s Styles) LevelStyle(level logtail.Level) lipgloss.Style {
	color := s.levelColors[level.String()]
	if color == "" {
		color = s.text
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	if level >= logtail.LevelError {
		style = style.Bold(true)
	}
	return style
}

// SourceStyle returns the style of the source column for handle h.
func (s Styles) SourceStyle(h int) lipgloss.Style {
	if len(s.sourceColors) == 0 || h < 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(s.text))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(s.sourceColors[h%len(s.sourceColors)]))
}

// Theme definitions

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		FocusBg:    "#29394f", // bg3

		SelectionBg:   "#2b3b51", // sel0
		SelectionText: "#cdcecf", // fg1

		Border: "#39506d", // bg4

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		LevelColors: map[string]string{
			"trace":   "#71839b", // fg3
			"debug":   "#738091", // comment
			"info":    "#cdcecf", // fg1
			"warning": "#dbc074", // yellow
			"error":   "#c94f6d", // red
			"fatal":   "#d16983", // red bright
		},
		SourceColors: []string{
			"#719cd6", // blue
			"#81b29a", // green
			"#9d79d6", // magenta
			"#63cdcf", // cyan
			"#f4a261", // orange
			"#d67ad2", // pink
		},
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name: "Kanagawa",

		Background: "#16161D", // sumiInk0
		Surface:    "#1F1F28", // sumiInk3
		FocusBg:    "#2A2A37", // sumiInk4

		SelectionBg:   "#2D4F67", // waveBlue1
		SelectionText: "#DCD7BA", // fujiWhite

		Border: "#54546D", // sumiInk6

		Text:    "#DCD7BA", // fujiWhite
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue

		LevelColors: map[string]string{
			"trace":   "#727169", // fujiGray
			"debug":   "#C8C093", // oldWhite
			"info":    "#DCD7BA", // fujiWhite
			"warning": "#E6C384", // carpYellow
			"error":   "#E46876", // waveRed
			"fatal":   "#FF5D62", // peachRed
		},
		SourceColors: []string{
			"#7E9CD8", // crystalBlue
			"#98BB6C", // springGreen
			"#957FB8", // oniViolet
			"#7FB4CA", // springBlue
			"#FFA066", // surimiOrange
			"#D27E99", // sakuraPink
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		FocusBg:    "#1e293b", // slate-800

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border: "#334155", // slate-700

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		LevelColors: map[string]string{
			"trace":   "#64748b", // slate-500
			"debug":   "#94a3b8", // slate-400
			"info":    "#f1f5f9", // slate-100
			"warning": "#f59e0b", // amber-500
			"error":   "#ef4444", // red-500
			"fatal":   "#dc2626", // red-600
		},
		SourceColors: []string{
			"#38bdf8", // sky-400
			"#22c55e", // green-500
			"#a78bfa", // violet-400
			"#06b6d4", // cyan-500
			"#fb923c", // orange-400
			"#f472b6", // pink-400
		},
	}
}
