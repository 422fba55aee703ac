// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// kernelNames lists every animation kernel whose state endpoint the dashboard
// polls for a reachable/unreachable summary (SPEC_FULL.md §3's one REST+WS
// pair per kernel).
var kernelNames = []string{"gbn", "sr", "tcpsyn", "tcpfin", "casting", "modulation", "fragdemo"}

type tickMsg time.Time

// DashboardModel renders the live node table, scheduler speed indicator, and
// a per-kernel reachability summary, following the teacher's DashboardModel shape
// (internal/tui/dashboard.go) adapted from firewall stats to topology state.
type DashboardModel struct {
	Backend Backend

	Table        table.Model
	Nodes        []NodeView
	Scheduler    SchedulerState
	LastSpeedSet string
	KernelsUp    map[string]bool
	LastUpdated  time.Time
	Width        int
	Height       int
}

func NewDashboardModel(backend Backend) DashboardModel {
	columns := []table.Column{
		{Title: "Node", Width: 14},
		{Title: "Kind", Width: 10},
		{Title: "Interfaces", Width: 24},
		{Title: "Gateway", Width: 16},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(ColorMuted).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("230")).Background(ColorAccent).Bold(false)
	t.SetStyles(s)

	return DashboardModel{
		Backend:      backend,
		Table:        t,
		LastSpeedSet: "paused",
		KernelsUp:    make(map[string]bool),
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m DashboardModel) tick() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m DashboardModel) refresh() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			nodes, err := m.Backend.ListNodes()
			if err != nil {
				return BackendError{Err: err}
			}
			return nodes
		},
		func() tea.Msg {
			st, err := m.Backend.SchedulerState()
			if err != nil {
				return BackendError{Err: err}
			}
			return st
		},
		func() tea.Msg {
			up := make(map[string]bool, len(kernelNames))
			for _, name := range kernelNames {
				_, err := m.Backend.KernelState(name)
				up[name] = err == nil
			}
			return kernelStatusMsg(up)
		},
	)
}

type kernelStatusMsg map[string]bool

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case []NodeView:
		m.Nodes = msg
		rows := make([]table.Row, len(msg))
		for i, n := range msg {
			gw := n.Gateway
			if gw == "" {
				gw = "-"
			}
			rows[i] = table.Row{n.Name, n.Kind, joinInterfaces(n.Interfaces), gw}
		}
		m.Table.SetRows(rows)

	case SchedulerState:
		m.Scheduler = msg

	case kernelStatusMsg:
		m.KernelsUp = msg

	case speedSetMsg:
		m.LastSpeedSet = string(msg)

	case tickMsg:
		m.LastUpdated = time.Time(msg)
		return m, tea.Batch(m.refresh(), m.tick())

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.refresh()
		case "p":
			return m, m.cycleSpeed()
		}

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Table.SetHeight(msg.Height - 10)
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

// speedCycle is the order "p" steps the scheduler through, mirroring
// clock.SpeedLevel's own Paused -> Slower -> RealTime -> Faster progression.
var speedCycle = []string{"paused", "slower", "real_time", "faster"}

func (m DashboardModel) cycleSpeed() tea.Cmd {
	next := speedCycle[0]
	for i, s := range speedCycle {
		if s == m.LastSpeedSet {
			next = speedCycle[(i+1)%len(speedCycle)]
			break
		}
	}
	return func() tea.Msg {
		if err := m.Backend.SetSchedulerSpeed(next); err != nil {
			return BackendError{Err: err}
		}
		return speedSetMsg(next)
	}
}

type speedSetMsg string

func joinInterfaces(ifaces []string) string {
	out := ""
	for i, name := range ifaces {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}

func (m DashboardModel) View() string {
	speedBlock := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render("Scheduler"),
		fmt.Sprintf("speed: %s  (p: cycle)", m.LastSpeedSet),
		StyleSubtitle.Render(fmt.Sprintf("delta: %.1f ms", m.Scheduler.DeltaMs)),
	))

	var kernelLines []string
	kernelLines = append(kernelLines, StyleTitle.Render("Kernels"))
	for _, name := range kernelNames {
		line := "- " + name
		if m.KernelsUp[name] {
			kernelLines = append(kernelLines, StyleStatusGood.Render(line+" reachable"))
		} else {
			kernelLines = append(kernelLines, StyleStatusWarn.Render(line+" unreachable"))
		}
	}
	kernelsBlock := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, kernelLines...))

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, speedBlock, kernelsBlock)

	nodesBlock := lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render(fmt.Sprintf("Nodes (%d)", len(m.Nodes))),
		StyleCard.Render(m.Table.View()),
	)

	footer := StyleSubtitle.Render(fmt.Sprintf("last updated: %s  (r: refresh)", m.LastUpdated.Format("15:04:05")))

	return lipgloss.JoinVertical(lipgloss.Left, topRow, nodesBlock, footer)
}
