// Package tui is the terminal dashboard shown by watch mode: recent build
// runs on one panel, the targets of the loaded makefile on the other.
package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	coreapp "mymake/internal/core/app"
)

// Run shows the dashboard until the user quits or ctx is done. Builds that
// finish while it runs are pushed to it as they happen; b rebuilds req.
func Run(ctx context.Context, a *coreapp.App, req coreapp.BuildRequest) error {
	m := initialModel(func() tea.Msg {
		return rebuildDoneMsg{err: a.Build(ctx, req)}
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	sendGraph := func() {
		cycles, err := a.Cycles()
		if err != nil {
			cycles = nil
		}
		p.Send(graphMsg{targets: a.Targets(), cycles: cycles})
	}

	a.SetUpdateHandler(func(update coreapp.Update) {
		p.Send(runMsg{run: update.Run, reason: update.Reason})
		sendGraph()
	})
	defer a.SetUpdateHandler(nil)

	go func() {
		sendGraph()
		runs, err := a.RecentRuns(ctx, maxRuns)
		if err != nil {
			slog.Debug("no run history for the dashboard", "error", err)
			return
		}
		p.Send(historyMsg{runs: runs})
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
