package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deskpilot/deskpilot/pkg/models"
	"github.com/spf13/cobra"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelSession
	panelLog
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	status   models.SessionStatus
	tasks    []taskRow
	outcomes map[string]models.TaskOutcome
	logLines []logRow

	err error
}

type taskRow struct {
	id      string
	kind    string
	name    string
	enabled bool
}

type logRow struct {
	time  string
	event string
	text  string
}

// refreshMsg carries a fresh data snapshot back to the model.
type refreshMsg struct {
	status   models.SessionStatus
	tasks    []taskRow
	outcomes map[string]models.TaskOutcome
	logLines []logRow
}

type tickMsg time.Time

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusIdleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusBusyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	outcomeSucceeded = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	outcomeFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	outcomeRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	outcomeOther     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelSession,
		status:      models.StatusIdle,
		outcomes:    make(map[string]models.TaskOutcome),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(refreshData, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshData snapshots the orchestrator and the task store.
func refreshData() tea.Msg {
	msg := refreshMsg{outcomes: make(map[string]models.TaskOutcome)}

	if Orchestrator != nil {
		msg.status = Orchestrator.Status()
		msg.outcomes = Orchestrator.Outcomes()
		for _, l := range Orchestrator.Log() {
			msg.logLines = append(msg.logLines, logRow{
				time:  l.Time.Local().Format("15:04:05"),
				event: string(l.Event),
				text:  l.Text,
			})
		}
	}
	if TaskStore != nil {
		for _, e := range TaskStore.All() {
			msg.tasks = append(msg.tasks, taskRow{
				id:      e.ID,
				kind:    string(e.Task.Kind),
				name:    e.Task.Name,
				enabled: e.Task.Enabled,
			})
		}
	}
	return msg
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			return m, refreshData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(refreshData, tick())

	case refreshMsg:
		m.status = msg.status
		m.tasks = msg.tasks
		m.outcomes = msg.outcomes
		m.logLines = msg.logLines
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render("DeskPilot Dashboard")

	panels := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderPanel(panelTasks, "Tasks", m.renderTasks()),
		m.renderPanel(panelSession, "Session", m.renderSession()),
		m.renderPanel(panelLog, "Log", m.renderLog()),
	)

	help := helpStyle.Render("tab: switch panel • r: refresh • q: quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, panels, help)
}

func (m dashboardModel) renderPanel(index int, header, body string) string {
	style := panelStyle
	if m.activePanel == index {
		style = activePanelStyle
	}
	width := m.width/panelCount - 6
	if width < 20 {
		width = 20
	}
	content := headerStyle.Render(header) + "\n" + body
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasks() string {
	if len(m.tasks) == 0 {
		return "No tasks configured."
	}
	var b strings.Builder
	for _, t := range m.tasks {
		marker := "[x]"
		if !t.enabled {
			marker = "[ ]"
		}
		name := t.name
		if name == "" {
			name = t.kind
		}
		fmt.Fprintf(&b, "%s %-13s %s\n", marker, t.kind, name)
	}
	return b.String()
}

func (m dashboardModel) renderSession() string {
	var statusLine string
	switch m.status {
	case models.StatusBusy:
		statusLine = statusBusyStyle.Render(string(m.status))
	case models.StatusPending:
		statusLine = statusPendingStyle.Render(string(m.status))
	default:
		statusLine = statusIdleStyle.Render(string(m.status))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n\n", statusLine)

	if len(m.outcomes) == 0 {
		b.WriteString("No task outcomes yet.")
		return b.String()
	}
	for id, outcome := range m.outcomes {
		var style lipgloss.Style
		switch outcome {
		case models.OutcomeSucceeded:
			style = outcomeSucceeded
		case models.OutcomeFailed:
			style = outcomeFailed
		case models.OutcomeRunning:
			style = outcomeRunning
		default:
			style = outcomeOther
		}
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		fmt.Fprintf(&b, "%-10s %s\n", short, style.Render(string(outcome)))
	}
	return b.String()
}

func (m dashboardModel) renderLog() string {
	if len(m.logLines) == 0 {
		return "Session log is empty."
	}
	lines := m.logLines
	maxLines := m.height - 10
	if maxLines < 5 {
		maxLines = 5
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	var b strings.Builder
	for _, l := range lines {
		text := l.text
		if text == "" {
			text = l.event
		}
		fmt.Fprintf(&b, "%s %s\n", l.time, text)
	}
	return b.String()
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive terminal dashboard",
	Long: `Launch an interactive terminal dashboard showing the task queue, the
session status with per-task outcomes, and the live session log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running dashboard: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
