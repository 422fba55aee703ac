// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tui implements netsim's operator dashboard (SPEC_FULL.md §0.6): a
// read-mostly terminal window onto the same command surface the browser
// client drives, following the teacher's Backend-interface Model/View shape
// (internal/tui/model.go) rather than its multi-tab firewall UI.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// View is the currently active screen.
type View int

const (
	ViewDashboard View = iota
	ViewPing
)

// Model is netsim-tui's top-level application state.
type Model struct {
	Backend Backend

	ActiveView      View
	Width           int
	Height          int
	ConnectionError string

	Dashboard DashboardModel
	Ping      PingModel
}

func NewModel(backend Backend) Model {
	return Model{
		Backend:    backend,
		ActiveView: ViewDashboard,
		Dashboard:  NewDashboardModel(backend),
		Ping:       NewPingModel(backend),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Dashboard.Init(), m.Ping.Init())
}

type BackendError struct{ Err error }
type retryMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case BackendError:
		m.ConnectionError = msg.Err.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg { return retryMsg{} })

	case retryMsg:
		if m.ConnectionError != "" {
			m.ConnectionError = ""
			return m, m.Init()
		}
		return m, nil

	case tea.KeyMsg:
		if m.ActiveView == ViewPing && m.Ping.Editing {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.ActiveView = (m.ActiveView + 1) % 2
			return m, nil
		case "1":
			m.ActiveView = ViewDashboard
			return m, nil
		case "2":
			m.ActiveView = ViewPing
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		var cmd tea.Cmd
		m.Dashboard, cmd = m.Dashboard.Update(msg)
		cmds = append(cmds, cmd)
		m.Ping, cmd = m.Ping.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	switch m.ActiveView {
	case ViewDashboard:
		m.Dashboard, cmd = m.Dashboard.Update(msg)
	case ViewPing:
		m.Ping, cmd = m.Ping.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.ConnectionError != "" {
		msg := StyleTitle.Render("Connection lost") + "\n\n" +
			lipgloss.NewStyle().Foreground(ColorBad).Render(m.ConnectionError) + "\n\n" +
			StyleSubtitle.Render("Retrying... (q to quit)")
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, StyleCard.Render(msg))
	}

	doc := m.viewTopBar() + "\n"
	switch m.ActiveView {
	case ViewDashboard:
		doc += m.Dashboard.View()
	case ViewPing:
		doc += m.Ping.View()
	}
	return StyleApp.Render(doc)
}

func (m Model) viewTopBar() string {
	menus := []struct {
		view  View
		label string
		key   string
	}{
		{ViewDashboard, "Dashboard", "1"},
		{ViewPing, "Ping", "2"},
	}

	var items []string
	for _, menu := range menus {
		label := StyleMenuKey.Render("["+menu.key+"]") + " " + menu.label
		if m.ActiveView == menu.view {
			items = append(items, StyleMenuItemActive.Render(label))
		} else {
			items = append(items, StyleMenuItem.Render(label))
		}
	}
	brand := StyleTitle.Render("netsim ")
	return StyleTopBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, append([]string{brand}, items...)...))
}
