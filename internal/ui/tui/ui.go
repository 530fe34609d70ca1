package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mymake/internal/data/history"
	"mymake/internal/engine/build"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// maxRuns bounds the run list; older runs stay in the history store.
const maxRuns = 200

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelRuns panelMode = iota
	panelTargets
)

type model struct {
	runList    list.Model
	targetList list.Model
	mode       panelMode
	rebuild    func() tea.Msg

	runs       []history.Run
	targets    []build.Target
	cycles     [][]string
	lastUpdate time.Time
	lastReason string
	rebuilding bool
	status     string
}

// runMsg reports a finished goal build.
type runMsg struct {
	run    history.Run
	reason string
}

// graphMsg replaces the displayed targets and cycles.
type graphMsg struct {
	targets []build.Target
	cycles  [][]string
}

// historyMsg seeds the run list, newest first.
type historyMsg struct {
	runs []history.Run
}

type rebuildDoneMsg struct {
	err error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.runList.SetSize(width, height)
		m.targetList.SetSize(width, height)
	case historyMsg:
		m.runs = append(m.runs, msg.runs...)
		m.trimRuns()
		m.runList.SetItems(runItems(m.runs))
	case runMsg:
		m.runs = append([]history.Run{msg.run}, m.runs...)
		m.trimRuns()
		m.lastUpdate = time.Now()
		m.lastReason = msg.reason
		m.runList.SetItems(runItems(m.runs))
	case graphMsg:
		m.targets = msg.targets
		m.cycles = msg.cycles
		m.targetList.SetItems(targetItems(m.targets, m.cycles))
	case rebuildDoneMsg:
		m.rebuilding = false
		if msg.err != nil {
			m.status = failureStyle.Render(fmt.Sprintf("Rebuild failed: %v", msg.err))
		} else {
			m.status = statusStyle.Render("Rebuild finished.")
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

func (m *model) trimRuns() {
	if len(m.runs) > maxRuns {
		m.runs = m.runs[:maxRuns]
	}
}

func (m model) View() string {
	last := "never"
	if !m.lastUpdate.IsZero() {
		last = m.lastUpdate.Format("15:04:05")
		if m.lastReason != "" {
			last += " (" + m.lastReason + ")"
		}
	}
	status := statusStyle.Render(fmt.Sprintf("Last build: %s | %d targets | %d runs", last, len(m.targets), len(m.runs)))

	failures := 0
	for _, r := range m.runs {
		if !r.Success {
			failures++
		}
	}
	var summary string
	if failures == 0 && len(m.cycles) == 0 {
		summary = successStyle.Render("All goals built")
	} else {
		summary = fmt.Sprintf("%s | %s",
			failureStyle.Render(fmt.Sprintf("%d failed", failures)),
			cycleStyle.Render(fmt.Sprintf("%d cycles", len(m.cycles))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("mymake watch"), status, summary)
	help := renderHelp(m)

	body := renderRunPanel(m)
	if m.mode == panelTargets {
		body = renderTargetPanel(m)
	}
	if m.status != "" {
		body += "\n\n" + m.status
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func runItems(runs []history.Run) []list.Item {
	items := make([]list.Item, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "FAILED"
		}
		if r.DryRun {
			result += " (dry run)"
		}
		items = append(items, item{
			title: fmt.Sprintf("%s  %s", r.Goal, result),
			desc:  fmt.Sprintf("%s  %s", r.StartedAt.Local().Format("15:04:05"), r.Duration.Round(time.Millisecond)),
		})
	}
	return items
}

func targetItems(targets []build.Target, cycles [][]string) []list.Item {
	inCycle := make(map[string]bool)
	for _, c := range cycles {
		for _, name := range c {
			inCycle[name] = true
		}
	}
	items := make([]list.Item, 0, len(targets))
	for _, t := range targets {
		desc := "source"
		if len(t.Recipe) > 0 {
			desc = fmt.Sprintf("%d command(s): %s", len(t.Recipe), t.Recipe[0])
		}
		if inCycle[t.Name] {
			desc = "in cycle | " + desc
		}
		items = append(items, item{title: t.Name, desc: desc})
	}
	return items
}

func initialModel(rebuild func() tea.Msg) model {
	runList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	runList.Title = "Build Runs"
	runList.SetShowStatusBar(false)
	runList.SetFilteringEnabled(true)

	targetList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	targetList.Title = "Targets"
	targetList.SetShowStatusBar(false)
	targetList.SetFilteringEnabled(true)

	return model{
		runList:    runList,
		targetList: targetList,
		mode:       panelRuns,
		rebuild:    rebuild,
	}
}

func cycleLine(c []string) string {
	if len(c) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), c...), c[0]), " -> ")
}
