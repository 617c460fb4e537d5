package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"IndexLens/internal/model"
	"IndexLens/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)
)

// Loader runs one pipeline pass for the interactive view.
type Loader func(ctx context.Context) (*pipeline.Result, error)

type loadedMsg struct {
	res *pipeline.Result
	err error
}

// columnWidths sizes the interactive table; metadata columns are truncated.
var columnWidths = []int{19, 7, 10, 10, 10, 10, 10, 12, 10, 24, 22, 28, 24, 11, 10, 13}

// Model is the bubbletea model of the interactive table.
type Model struct {
	load    Loader
	ctx     context.Context
	table   table.Model
	result  *pipeline.Result
	err     error
	loading bool
}

// NewModel builds the interactive view. The first load starts from Init.
func NewModel(ctx context.Context, load Loader) Model {
	cols := make([]table.Column, len(Columns))
	width := 0
	for i, c := range Columns {
		cols[i] = table.Column{Title: c, Width: columnWidths[i]}
		width += columnWidths[i] + 2 // cell padding
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Bold(false)
	t.SetStyles(s)

	return Model{load: load, ctx: ctx, table: t, loading: true}
}

func (m Model) Init() tea.Cmd {
	return m.reload()
}

func (m Model) reload() tea.Cmd {
	load, ctx := m.load, m.ctx
	return func() tea.Msg {
		res, err := load(ctx)
		return loadedMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, m.reload()
		}

	case tea.WindowSizeMsg:
		// title, description, status and help take about eight lines
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}

	case loadedMsg:
		m.loading = false
		m.result = msg.res
		m.err = msg.err
		m.table.SetRows(tableRows(finalTable(msg.res)))
		m.table.GotoTop()
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func finalTable(res *pipeline.Result) *model.TidyTable {
	if res == nil {
		return nil
	}
	return res.Final
}

func tableRows(t *model.TidyTable) []table.Row {
	if t == nil {
		return nil
	}
	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = Cells(r)
	}
	return rows
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(Title) + "\n")
	b.WriteString(descStyle.Render(Description) + "\n")

	if m.err != nil {
		b.WriteString(Banner(pipeline.Banner(m.err)) + "\n")
	}

	switch {
	case m.loading:
		b.WriteString("\n  Loading...\n")
	case finalTable(m.result) != nil:
		b.WriteString(m.table.View() + "\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n" + helpStyle.Render("↑/↓: Scroll • r: Reload • q: Quit"))
	return b.String()
}

func (m Model) statusLine() string {
	res := m.result
	if res == nil {
		return ""
	}
	rows := 0
	if res.Final != nil {
		rows = res.Final.Len()
	}
	line := fmt.Sprintf("%d rows • %d symbols • source %s • updated %s",
		rows, len(res.Symbols), res.Source, res.FinishedAt.Local().Format("15:04:05"))
	if failed := res.Failed(); len(failed) > 0 {
		syms := make([]string, 0, len(failed))
		for s := range failed {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		return statusWarnStyle.Render(fmt.Sprintf("%s • %d failed: %s", line, len(syms), strings.Join(syms, ", ")))
	}
	return statusStyle.Render(line)
}
