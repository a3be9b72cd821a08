package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"simlint/internal/anomaly"
	"simlint/internal/audit"
	"simlint/internal/report"
)

// FilterMode restricts the unit list by severity.
type FilterMode int

const (
	FilterAll FilterMode = iota
	FilterAnomalies
	FilterWarn
	FilterCrit
)

var filterModes = []struct {
	mode  FilterMode
	label string
}{
	{FilterAll, "All"},
	{FilterAnomalies, "Any anomaly"},
	{FilterWarn, "Warn+"},
	{FilterCrit, "Crit"},
}

// BrowseModel is the scan browser: a filterable unit table with a detail pane.
type BrowseModel struct {
	width  int
	height int
	title  string

	table    table.Model
	detail   viewport.Model
	showing  bool
	wordWrap int

	units    []audit.UnitSummary
	filtered []int // indexes into units

	filterInput   textinput.Model
	filterMode    FilterMode
	filterFocused bool

	styles Styles
}

// NewBrowseModel creates a browser over units. wordWrap sizes the detail
// Markdown; title is shown in the header.
func NewBrowseModel(title string, units []audit.UnitSummary, theme Theme, wordWrap int) BrowseModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 12},
			{Title: "Name", Width: 28},
			{Title: "Weapons", Width: 8},
			{Title: "Eff DPS", Width: 10},
			{Title: "Anomalies", Width: 10},
			{Title: "Severity", Width: 9},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	fi := textinput.New()
	fi.Placeholder = "Filter by ID or name..."
	fi.CharLimit = 50
	fi.Width = 40

	m := BrowseModel{
		title:       title,
		table:       t,
		detail:      viewport.New(80, 20),
		wordWrap:    wordWrap,
		units:       units,
		filterInput: fi,
		styles:      NewStyles(theme),
	}
	m.applyFilter()
	return m
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.showing {
			switch msg.String() {
			case "esc", "q", "backspace":
				m.showing = false
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !m.filterFocused {
				return m, tea.Quit
			}
		case "/":
			m.filterFocused = !m.filterFocused
			if m.filterFocused {
				m.filterInput.Focus()
			} else {
				m.filterInput.Blur()
			}
			return m, nil
		case "tab":
			if !m.filterFocused {
				m.filterMode = (m.filterMode + 1) % FilterMode(len(filterModes))
				m.applyFilter()
				return m, nil
			}
		case "esc":
			if m.filterFocused {
				m.filterFocused = false
				m.filterInput.Blur()
				return m, nil
			}
		case "enter":
			if m.filterFocused {
				m.filterFocused = false
				m.filterInput.Blur()
				m.applyFilter()
				return m, nil
			}
			m.openDetail()
			return m, nil
		}
	}

	if m.filterFocused {
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *BrowseModel) applyFilter() {
	text := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	m.filtered = make([]int, 0, len(m.units))

	for i := range m.units {
		u := &m.units[i]
		sev := u.MaxSeverity()
		switch m.filterMode {
		case FilterAnomalies:
			if len(u.Anomalies) == 0 {
				continue
			}
		case FilterWarn:
			if sev.Rank() < anomaly.Warn.Rank() {
				continue
			}
		case FilterCrit:
			if sev != anomaly.Crit {
				continue
			}
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(u.UnitID.ID), text) &&
			!strings.Contains(strings.ToLower(u.UnitID.Name), text) {
			continue
		}
		m.filtered = append(m.filtered, i)
	}
	m.updateTableRows()
}

func (m *BrowseModel) updateTableRows() {
	rows := make([]table.Row, 0, len(m.filtered))
	for _, i := range m.filtered {
		u := &m.units[i]
		sev := string(u.MaxSeverity())
		if sev == "" {
			sev = "-"
		}
		rows = append(rows, table.Row{
			u.UnitID.ID,
			u.UnitID.Name,
			fmt.Sprintf("%d", len(u.Weapons)),
			fmt.Sprintf("%.1f", u.TotalEffectiveDPS()),
			fmt.Sprintf("%d", len(u.Anomalies)),
			sev,
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// Selected returns the unit under the cursor.
func (m BrowseModel) Selected() (*audit.UnitSummary, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.filtered) {
		return nil, false
	}
	return &m.units[m.filtered[c]], true
}

func (m *BrowseModel) openDetail() {
	u, ok := m.Selected()
	if !ok {
		return
	}
	md := report.UnitMarkdown(u)
	content, err := report.Render(md, m.styles.Theme.Name, m.wordWrap)
	if err != nil {
		content = md
	}
	m.detail.SetContent(content)
	m.detail.GotoTop()
	m.showing = true
}

// SetFilter sets the filter text and reapplies it.
func (m *BrowseModel) SetFilter(text string) {
	m.filterInput.SetValue(text)
	m.applyFilter()
}

func (m *BrowseModel) SetFilterMode(mode FilterMode) {
	m.filterMode = mode
	m.applyFilter()
}

// Visible is the number of units passing the filter.
func (m BrowseModel) Visible() int { return len(m.filtered) }

func (m *BrowseModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if w > 4 {
		m.table.SetWidth(w - 4)
		m.detail.Width = w - 2
	}
	if h > 8 {
		m.table.SetHeight(h - 8)
		m.detail.Height = h - 4
	}
}

func (m BrowseModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render(" " + m.title + " "))
	sb.WriteString("\n\n")

	if m.showing {
		sb.WriteString(m.detail.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Footer.Render("[Esc] Back  [↑/↓] Scroll  [Ctrl+C] Quit"))
		return sb.String()
	}

	sb.WriteString(m.renderFilterBar())
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Content.Render(m.table.View()))
	sb.WriteString("\n")

	if u, ok := m.Selected(); ok {
		sb.WriteString(m.styles.Muted.Render(u.BlueprintPath))
		sb.WriteString("  ")
		sb.WriteString(m.styles.Severity(u.MaxSeverity()))
		sb.WriteString("\n")
	}
	if len(m.filtered) != len(m.units) {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("Showing %d of %d units", len(m.filtered), len(m.units))))
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.Footer.Render("[/] Filter  [Tab] Mode  [Enter] Details  [q] Quit"))
	return sb.String()
}

func (m BrowseModel) renderFilterBar() string {
	var sb strings.Builder

	filterStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Border).
		Padding(0, 1)
	if m.filterFocused {
		filterStyle = filterStyle.BorderForeground(m.styles.Theme.Primary)
	}
	sb.WriteString(filterStyle.Render(m.filterInput.View()))
	sb.WriteString("  ")

	for _, fm := range filterModes {
		style := m.styles.Muted
		if m.filterMode == fm.mode {
			style = lipgloss.NewStyle().
				Foreground(m.styles.Theme.Primary).
				Bold(true).
				Underline(true)
		}
		sb.WriteString(style.Render(fm.label))
		sb.WriteString("  ")
	}
	return sb.String()
}

// Browse runs the browser until the user quits.
func Browse(title string, units []audit.UnitSummary, themeName string, wordWrap int) error {
	m := NewBrowseModel(title, units, ThemeByName(themeName), wordWrap)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
