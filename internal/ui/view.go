package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tailmerge/internal/logtail"
	"github.com/five82/tailmerge/internal/merge"
)

const (
	minSourceColumn = 4
	maxSourceColumn = 18
	spanLayout      = "Jan 02 15:04:05.000"
)

// renderMain renders header, log body and status bar.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderHeader renders the summary line of the merged stream.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("tailmerge", styles.Logo)}

	if m.follow {
		parts = append(parts, bg.Render("● FOLLOW", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("○ PAUSED", styles.WarningText))
	}

	parts = append(parts,
		bg.Render("Lines:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", m.count), styles.Text))

	sources := len(m.snapshot.Sources)
	if m.merged != nil && sources == 0 {
		sources = len(m.merged.Index().Sources())
	}
	sourceText := bg.Render("Sources:", styles.MutedText) + bg.Space() +
		bg.Render(fmt.Sprintf("%d", sources), styles.Text)
	if failing := m.snapshot.FailingSources(); failing > 0 {
		sourceText += bg.Space() + bg.Render(fmt.Sprintf("(%d failing)", failing), styles.DangerText)
	}
	parts = append(parts, sourceText)

	if m.width >= 100 && m.merged != nil {
		if first, last, ok := m.merged.Span(); ok {
			parts = append(parts,
				bg.Render(first.Local().Format(spanLayout), styles.FaintText)+
					bg.Render(" → ", styles.MutedText)+
					bg.Render(last.Local().Format(spanLayout), styles.FaintText))
		}
	}

	if warning := m.formatHealthWarning(); warning != "" {
		parts = append(parts, bg.Render(warning, styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatHealthWarning describes a failing poller, or returns "".
func (m Model) formatHealthWarning() string {
	if m.snapshot.LastError == nil {
		return ""
	}
	msg := "poll failed"
	if m.snapshot.IsDegraded() {
		msg = fmt.Sprintf("poll failing (%dx)", m.snapshot.ConsecutiveFailures)
	}
	if age := time.Since(m.snapshot.LastUpdated); !m.snapshot.LastUpdated.IsZero() && age >= time.Second {
		msg += " " + humanizeDuration(age) + " ago"
	}
	return msg
}

// renderBody renders exactly bodyHeight rows of the visible window.
func (m Model) renderBody() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	rows := m.bodyHeight()

	lines := make([]string, rows)
	if len(m.window) == 0 {
		msg := "Waiting for timestamped lines..."
		if m.merged == nil {
			msg = "No merged stream"
		}
		lines[0] = bg.FillLine(bg.Render(msg, styles.MutedText), m.width)
		for i := 1; i < rows; i++ {
			lines[i] = bg.FillLine("", m.width)
		}
		return strings.Join(lines, "\n")
	}

	srcWidth := 0
	if m.showSource {
		srcWidth = sourceColumnWidth(m.window)
	}
	for i := 0; i < rows; i++ {
		if i >= len(m.window) {
			lines[i] = bg.FillLine("", m.width)
			continue
		}
		var prev *merge.Line
		if i > 0 {
			prev = &m.window[i-1]
		}
		lines[i] = m.renderLine(m.window[i], prev, m.levels[i], srcWidth, styles, bg)
	}
	return strings.Join(lines, "\n")
}

// renderLine renders one merged line. Continuation lines of the entry above
// leave the source column blank.
func (m Model) renderLine(line merge.Line, prev *merge.Line, level logtail.Level, srcWidth int, styles Styles, bg BgStyle) string {
	if !line.Record.IsValid() {
		return bg.FillLine("", m.width)
	}

	var b strings.Builder
	textWidth := m.width
	if srcWidth > 0 {
		name := ""
		if prev == nil || !prev.Record.IsValid() || prev.Record.MergedEntry != line.Record.MergedEntry {
			name = truncateMiddle(line.SourceName, srcWidth)
			if name == "" {
				name = line.Record.Source.String()
			}
		}
		b.WriteString(bg.Render(padRight(name, srcWidth), styles.SourceStyle(int(line.Record.Source))))
		b.WriteString(bg.Render(" │ ", styles.FaintText))
		textWidth -= srcWidth + 3
	}

	text := truncate(expandTabs(line.Text), max(0, textWidth))
	b.WriteString(bg.Render(text, styles.LevelStyle(level)))
	return bg.FillLine(b.String(), m.width)
}

// sourceColumnWidth fits the widest visible source name within bounds.
func sourceColumnWidth(lines []merge.Line) int {
	width := minSourceColumn
	for _, l := range lines {
		width = max(width, lipgloss.Width(l.SourceName))
	}
	return min(width, maxSourceColumn)
}

// renderStatusBar renders the position indicator and key hints.
func (m Model) renderStatusBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	position := "0/0"
	if len(m.window) > 0 {
		position = fmt.Sprintf("%d-%d/%d", m.top+1, m.top+len(m.window), m.count)
	}

	parts := []string{
		bg.Render(position, styles.Text),
		m.help.View(m.keys),
		bg.Render("T", styles.AccentText) + bg.Render(":", styles.FaintText) + bg.Render(m.theme.Name, styles.FaintText),
	}
	return styles.Footer.Width(m.width).Render(bg.Join(parts, "  "))
}
