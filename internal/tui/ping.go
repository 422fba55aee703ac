// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// PingModel drives executePing (SPEC_FULL.md §3's "POST /ping") through a
// small huh.Form, following the teacher's AutoForm/ConfigModel pairing of a
// huh.Form with a Backend call (internal/tui/autoform.go, config.go).
type PingModel struct {
	Backend Backend
	Form    *huh.Form

	From, To string
	Editing  bool
	Result   *PingResult
	LastErr  error

	Width, Height int
}

func NewPingModel(backend Backend) PingModel {
	m := PingModel{Backend: backend}
	m.Form = newPingForm(&m.From, &m.To)
	m.Editing = true
	return m
}

func newPingForm(from, to *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("From node").Value(from),
			huh.NewInput().Title("To node").Value(to),
		),
	)
}

func (m PingModel) Init() tea.Cmd {
	return m.Form.Init()
}

type pingResultMsg struct {
	result PingResult
	err    error
}

func (m PingModel) Update(msg tea.Msg) (PingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pingResultMsg:
		m.LastErr = msg.err
		if msg.err == nil {
			m.Result = &msg.result
		}
		m.Form = newPingForm(&m.From, &m.To)
		m.Editing = true
		return m, m.Form.Init()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
	}

	if m.Editing {
		form, cmd := m.Form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.Form = f
		}
		if m.Form.State == huh.StateCompleted {
			m.Editing = false
			from, to := m.From, m.To
			return m, func() tea.Msg {
				result, err := m.Backend.Ping(from, to)
				return pingResultMsg{result: result, err: err}
			}
		}
		return m, cmd
	}

	return m, nil
}

func (m PingModel) View() string {
	var body string
	switch {
	case m.Editing:
		body = m.Form.View()
	case m.LastErr != nil:
		body = lipgloss.NewStyle().Foreground(ColorBad).Render(fmt.Sprintf("ping failed: %v", m.LastErr))
	case m.Result != nil:
		line := fmt.Sprintf("%s -> %s: ", m.From, m.To)
		if m.Result.TimedOut {
			line += StyleStatusWarn.Render("timed out")
		} else {
			line += StyleStatusGood.Render(fmt.Sprintf("%.2f ms round trip", m.Result.RoundTripMs))
		}
		body = line
	default:
		body = "no ping run yet"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render("Ping"),
		StyleCard.Render(body),
		StyleSubtitle.Render("fill in two node names and press enter to send an echo"),
	)
}
