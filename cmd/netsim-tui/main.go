// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command netsim-tui is the operator dashboard described by SPEC_FULL.md
// §0.6: a terminal window onto a running netsim-server, following the
// teacher's cmd/tuidemo wiring (tea.NewProgram(tui.NewModel(backend),
// tea.WithAltScreen())).
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"grimm.is/netsim/internal/tui"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "netsim-server base URL")
	flag.Parse()

	backend := tui.NewRemoteBackend(*addr)
	p := tea.NewProgram(tui.NewModel(backend), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "netsim-tui: %v\n", err)
		os.Exit(1)
	}
}
