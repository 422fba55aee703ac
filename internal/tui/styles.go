// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent = lipgloss.Color("39")
	ColorMuted  = lipgloss.Color("240")
	ColorGood   = lipgloss.Color("42")
	ColorWarn   = lipgloss.Color("214")
	ColorBad    = lipgloss.Color("196")

	StyleApp = lipgloss.NewStyle().Padding(1, 2)

	StyleTopBar = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(ColorAccent).
			Padding(0, 1)

	StyleMenuItem       = lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
	StyleMenuItemActive = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Bold(true).Padding(0, 1)
	StyleMenuKey        = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))

	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginRight(1)

	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood).Bold(true)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorBad).Bold(true)
)
