// Package tui is the live terminal view of a running scheduler. It polls a
// Source for snapshots and renders the task table with its counters.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/me/ticksched/pkg/model"
)

// DefaultRefresh is the polling interval used when none is configured.
const DefaultRefresh = time.Second

// Source returns the current scheduler snapshot.
type Source interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// Controller applies a named control operation (pause, continue, disable) to a task.
type Controller interface {
	ControlTask(ctx context.Context, op, name string) error
}

type snapshotMsg struct {
	snap model.Snapshot
	err  error
}

type controlMsg struct {
	op   string
	name string
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

var columns = []table.Column{
	{Title: "Slot", Width: 5},
	{Title: "Task", Width: 20},
	{Title: "State", Width: 15},
	{Title: "Kind", Width: 18},
	{Title: "Interval", Width: 9},
	{Title: "Elapsed", Width: 9},
	{Title: "Predelay", Width: 9},
}

// Model is the bubbletea model of the live view.
type Model struct {
	source  Source
	control Controller
	refresh time.Duration
	title   string

	table     table.Model
	snap      model.Snapshot
	hasSnap   bool
	err       error
	statusMsg string
	width     int
}

// New creates a Model polling src every refresh. ctl may be nil, which
// disables the control keys.
func New(title string, src Source, ctl Controller, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#5B8DEF"))
	t.SetStyles(styles)

	return &Model{
		source:  src,
		control: ctl,
		refresh: refresh,
		title:   title,
		table:   t,
	}
}

// Init is called once when the program starts.
func (m *Model) Init() tea.Cmd {
	return m.fetch()
}

// Update is called when a message is received.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(3, msg.Height-8))
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.snap = msg.snap
			m.hasSnap = true
			m.table.SetRows(rows(msg.snap.Slots))
		}
		return m, m.schedule()

	case controlMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("%s %s failed: %v", msg.op, msg.name, msg.err)
		} else {
			m.statusMsg = fmt.Sprintf("%s %s", msg.op, msg.name)
		}
		return m, m.fetch()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.statusMsg = "refreshing..."
			return m, m.fetch()
		case "p":
			return m, m.controlSelected("pause")
		case "c":
			return m, m.controlSelected("continue")
		case "d":
			return m, m.controlSelected("disable")
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the model.
func (m *Model) View() string {
	sections := []string{titleStyle.Render("⏱ " + m.title)}

	if m.hasSnap {
		sections = append(sections, statsStyle.Render(statsLine(m.snap.Stats)))
	}
	if m.err != nil {
		sections = append(sections, errStyle.Render("error: "+m.err.Error()))
	}
	if m.hasSnap && len(m.snap.Slots) == 0 {
		sections = append(sections, statsStyle.Render("No occupied slots."))
	} else {
		sections = append(sections, boxStyle.Render(m.table.View()))
	}

	help := "q quit · r refresh"
	if m.control != nil {
		help += " · p pause · c continue · d disable"
	}
	if m.statusMsg != "" {
		help = m.statusMsg + "  ·  " + help
	}
	sections = append(sections, footerStyle.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.refresh)
		defer cancel()
		snap, err := m.source.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) schedule() tea.Cmd {
	return tea.Tick(m.refresh, func(time.Time) tea.Msg {
		return m.fetch()()
	})
}

func (m *Model) controlSelected(op string) tea.Cmd {
	if m.control == nil {
		return nil
	}
	row := m.table.SelectedRow()
	if len(row) < 2 || row[1] == "" {
		m.statusMsg = "no task selected"
		return nil
	}
	name := row[1]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return controlMsg{op: op, name: name, err: m.control.ControlTask(ctx, op, name)}
	}
}

func rows(slots []model.SlotView) []table.Row {
	out := make([]table.Row, 0, len(slots))
	for _, s := range slots {
		predelay := "-"
		if s.Kind == model.TaskKindPreDelayPeriodic {
			predelay = strconv.FormatUint(uint64(s.PredelayTicks), 10)
		}
		out = append(out, table.Row{
			strconv.Itoa(s.ID),
			s.Task,
			string(s.State),
			string(s.Kind),
			strconv.FormatUint(uint64(s.IntervalTicks), 10),
			strconv.FormatUint(uint64(s.ElapsedTicks), 10),
			predelay,
		})
	}
	return out
}

func statsLine(s model.StatsView) string {
	parts := []string{
		fmt.Sprintf("run %s", s.RunID),
		fmt.Sprintf("tick %dms", s.TickPeriodMs),
		fmt.Sprintf("ticks %d", s.Ticks),
		fmt.Sprintf("fires %d", s.Fires),
		fmt.Sprintf("overruns %d", s.Overruns),
		fmt.Sprintf("slots %d/%d", s.Active+s.PendingAdd+s.PendingRemove+s.Paused, s.Capacity),
		fmt.Sprintf("paused %d", s.Paused),
		fmt.Sprintf("max tick %dµs", s.MaxTickMicros),
	}
	return strings.Join(parts, " · ")
}
