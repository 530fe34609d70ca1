package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	filtering := m.runList.SettingFilter() || m.targetList.SettingFilter()
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelRuns {
				m.mode = panelTargets
			} else {
				m.mode = panelRuns
			}
			return m, nil
		case "b":
			if m.rebuild == nil || m.rebuilding {
				return m, nil
			}
			m.rebuilding = true
			m.status = statusStyle.Render("Rebuilding...")
			return m, m.rebuild
		}
	}

	var cmd tea.Cmd
	if m.mode == panelRuns {
		m.runList, cmd = m.runList.Update(msg)
	} else {
		m.targetList, cmd = m.targetList.Update(msg)
	}
	return m, cmd
}

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | b rebuild | q quit"
	if m.mode == panelTargets {
		keys = "Keys: tab panel | / filter | q quit"
	}
	return statusStyle.Render(keys)
}

func renderRunPanel(m model) string {
	return m.runList.View() + "\n\n" + renderRunDetails(m)
}

func renderRunDetails(m model) string {
	if len(m.runs) == 0 {
		return statusStyle.Render("No builds yet.")
	}
	idx := m.runList.Index()
	if idx < 0 || idx >= len(m.runs) {
		idx = 0
	}
	r := m.runs[idx]
	lines := []string{
		"Selected Run",
		fmt.Sprintf("  Goal: %s", r.Goal),
		fmt.Sprintf("  Started: %s", r.StartedAt.Local().Format("2006-01-02 15:04:05")),
		fmt.Sprintf("  Duration: %s", r.Duration),
		fmt.Sprintf("  Graph: %d targets, %d links", r.Targets, r.Links),
		fmt.Sprintf("  ID: %s", r.ID),
	}
	if r.Error != "" {
		lines = append(lines, failureStyle.Render("  Error: "+r.Error))
	}
	return strings.Join(lines, "\n")
}

func renderTargetPanel(m model) string {
	body := m.targetList.View()
	if len(m.cycles) == 0 {
		return body
	}
	lines := []string{"Cycles"}
	for _, c := range m.cycles {
		lines = append(lines, cycleStyle.Render("  "+cycleLine(c)))
	}
	return body + "\n\n" + strings.Join(lines, "\n")
}
