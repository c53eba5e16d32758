package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/imagesources/metrics"
	"github.com/pithecene-io/imagesources/types"
)

type keyMap struct {
	Quit key.Binding
	Next key.Binding
	Prev key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Next: key.NewBinding(
		key.WithKeys("right", "l", "n"),
		key.WithHelp("→", "older"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h", "p"),
		key.WithHelp("←", "newer"),
	),
}

// maxFailuresShown bounds the failure list under the stat boxes.
const maxFailuresShown = 5

// ReportsModel is a Bubble Tea model paging through run reports,
// newest first.
type ReportsModel struct {
	reports  []types.RunReport
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewReportsModel creates a reports model.
func NewReportsModel(reports []types.RunReport) ReportsModel {
	return ReportsModel{reports: reports}
}

// Init implements tea.Model.
func (m ReportsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			if m.cursor < len(m.reports)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Prev):
			if m.cursor > 0 {
				m.cursor--
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m ReportsModel) View() string {
	if m.quitting {
		return ""
	}
	if len(m.reports) == 0 {
		return TitleStyle.Render("Run Reports") + "\n\n" + "(no reports)\n" +
			HelpStyle.Render("Press q or Ctrl+C to quit")
	}

	r := m.reports[m.cursor]

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Run Report %d/%d", m.cursor+1, len(m.reports))))
	b.WriteString("\n")

	fields := [][2]string{
		{"Command:", r.Command},
		{"Run ID:", r.RunID},
		{"Day:", r.Day},
		{"Started:", r.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration:", fmt.Sprintf("%dms", r.DurationMs)},
	}
	for _, f := range fields {
		b.WriteString(LabelStyle.Render(f[0]) + " " + ValueStyle.Render(f[1]) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.statBoxes(r)...))

	if len(r.Failures) > 0 {
		b.WriteString("\n\n")
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Failures (%d)", len(r.Failures))))
		b.WriteString("\n")
		for i, f := range r.Failures {
			if i == maxFailuresShown {
				b.WriteString(HelpStyle.Render(fmt.Sprintf("… %d more", len(r.Failures)-maxFailuresShown)))
				break
			}
			b.WriteString("  " + f + "\n")
		}
	}

	help := HelpStyle.Render("←/→ newer/older • q quit")
	return b.String() + "\n" + help
}

// statBoxes renders one box per counter, in the command's display order.
func (m ReportsModel) statBoxes(r types.RunReport) []string {
	names := metrics.CounterNames(r.Command)
	if names == nil {
		for name := range r.Counters {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	boxes := make([]string, 0, len(names))
	for _, name := range names {
		boxes = append(boxes, renderStatBox(counterLabel(name), r.Counters[name], CounterColor(name)))
	}
	return boxes
}

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// counterLabel turns "images_converted" into "Images converted".
func counterLabel(name string) string {
	label := strings.ReplaceAll(name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// reportsFrom accepts the payloads the reports command renders.
func reportsFrom(data any) ([]types.RunReport, error) {
	switch v := data.(type) {
	case []types.RunReport:
		return v, nil
	case types.RunReport:
		return []types.RunReport{v}, nil
	case *types.RunReport:
		if v == nil {
			return nil, nil
		}
		return []types.RunReport{*v}, nil
	default:
		return nil, fmt.Errorf("invalid data type %T for reports view", data)
	}
}

// RunReportsTUI runs the reports TUI.
func RunReportsTUI(reports []types.RunReport) error {
	p := tea.NewProgram(NewReportsModel(reports), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderReportsStatic renders the newest report without the interactive
// program, for non-interactive terminals.
func RenderReportsStatic(reports []types.RunReport) string {
	model := NewReportsModel(reports)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
