// internal/tui/app.go
//
// This is the TUI (Terminal User Interface) for unirecords.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Refresh progress arrives from worker goroutines through a Bridge, which turns
// each callback into a message on the program's event loop.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/unirecords/internal/assignment"
	"github.com/kingrea/unirecords/internal/logbook"
	"github.com/kingrea/unirecords/internal/refresh"
)

const progressLines = 8

// Refresher is the part of the orchestrator the TUI drives.
type Refresher interface {
	RefreshSpecific(ctx context.Context, category refresh.Category) refresh.Outcome
	RefreshAll(ctx context.Context) refresh.Report
	InitialiseData(ctx context.Context) error
}

type progressMsg string

type busyMsg bool

type refreshDoneMsg struct {
	category refresh.Category
	outcome  refresh.Outcome
	report   *refresh.Report
}

type initDoneMsg struct {
	err error
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title    string
	desc     string
	category refresh.Category
	quit     bool
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook shows the tail of the refresh journal under the progress panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithContext sets the context handed to every refresh.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	ctx       context.Context
	refresher Refresher
	view      *refresh.View
	logbook   *logbook.Logbook

	menu    list.Model
	spinner spinner.Model

	busy      bool
	running   bool
	progress  []string
	history   []string
	statusMsg string

	width  int
	height int
}

// NewApp creates a new App instance
func NewApp(refresher Refresher, view *refresh.View, opts ...AppOption) *App {
	menu := list.New(buildMenu(), list.NewDefaultDelegate(), 0, 0)
	menu.Title = "Records"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))

	a := &App{
		ctx:       context.Background(),
		refresher: refresher,
		view:      view,
		menu:      menu,
		spinner:   spin,
		statusMsg: "Loading records...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.loadHistory()
	return a
}

// loadHistory caches the journal tail so rendering never touches the disk.
func (a *App) loadHistory() {
	if a.logbook == nil {
		return
	}
	a.history, _ = a.logbook.Tail(progressLines)
}

func buildMenu() []list.Item {
	items := []list.Item{
		menuItem{title: "Refresh all", desc: "Reload every category", category: refresh.All},
	}
	for _, c := range refresh.Categories() {
		items = append(items, menuItem{
			title:    "Refresh " + c.String(),
			desc:     fmt.Sprintf("Reload %s from disk", c),
			category: c,
		})
	}
	return append(items, menuItem{title: "Exit", desc: "Quit unirecords", quit: true})
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.running = true
	refresher, ctx := a.refresher, a.ctx
	return func() tea.Msg {
		return initDoneMsg{err: refresher.InitialiseData(ctx)}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.menu.SetSize(max(20, msg.Width/2-4), max(5, msg.Height-12))
		return a, nil

	case progressMsg:
		line := strings.TrimSpace(string(msg))
		if line == "" {
			return a, nil
		}
		a.progress = append(a.progress, line)
		if len(a.progress) > progressLines {
			a.progress = a.progress[len(a.progress)-progressLines:]
		}
		a.statusMsg = line
		return a, nil

	case busyMsg:
		wasBusy := a.busy
		a.busy = bool(msg)
		if a.busy && !wasBusy {
			return a, a.spinner.Tick
		}
		return a, nil

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case initDoneMsg:
		a.running = false
		a.loadHistory()
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Error initialising data: %v", msg.err)
		}
		return a, a.startRefresh(refresh.All)

	case refreshDoneMsg:
		a.running = false
		a.statusMsg = describeDone(msg)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "r":
			return a, a.startRefresh(refresh.All)
		case "enter":
			item, ok := a.menu.SelectedItem().(menuItem)
			if !ok {
				return a, nil
			}
			if item.quit {
				return a, tea.Quit
			}
			return a, a.startRefresh(item.category)
		}
	}

	var cmd tea.Cmd
	a.menu, cmd = a.menu.Update(msg)
	return a, cmd
}

func (a *App) startRefresh(category refresh.Category) tea.Cmd {
	if a.running {
		a.statusMsg = "A refresh is already running"
		return nil
	}
	a.running = true
	refresher, ctx := a.refresher, a.ctx
	return func() tea.Msg {
		if category == refresh.All {
			report := refresher.RefreshAll(ctx)
			return refreshDoneMsg{category: category, report: &report}
		}
		return refreshDoneMsg{category: category, outcome: refresher.RefreshSpecific(ctx, category)}
	}
}

func describeDone(msg refreshDoneMsg) string {
	if msg.report != nil {
		if msg.report.OK() {
			return fmt.Sprintf("Refreshed %d of %d categories", msg.report.Completed, msg.report.Total)
		}
		return fmt.Sprintf("Refresh finished: %d of %d failed", len(msg.report.Failed()), msg.report.Total)
	}
	if msg.outcome.OK() {
		return fmt.Sprintf("%s refreshed", msg.category)
	}
	return fmt.Sprintf("Error refreshing %s: %v", msg.category, msg.outcome.Err)
}

// View renders the current state.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ UNIRECORDS")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		box.Render(a.menu.View()),
		box.Render(a.renderCounts()),
	)

	sections := []string{header, body}
	if panel := a.renderProgress(); panel != "" {
		sections = append(sections, box.Render(panel))
	}
	status := a.statusMsg
	if a.busy {
		status = a.spinner.View() + " " + status
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(status + "\n\nenter: run · r: refresh all · q: quit")
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderCounts() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("LOADED")
	if a.view == nil {
		return title
	}
	lines := []string{
		title,
		fmt.Sprintf("Students            %d", len(a.view.Students())),
		fmt.Sprintf("Staff               %d", len(a.view.Staff())),
		fmt.Sprintf("Courses             %d", len(a.view.Courses())),
		fmt.Sprintf("Modules             %d", len(a.view.Modules())),
		fmt.Sprintf("Staff assignments   %d", len(a.view.Assignments(assignment.KindStaff))),
		fmt.Sprintf("Student assignments %d", len(a.view.Assignments(assignment.KindStudent))),
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderProgress() string {
	lines := a.progress
	name := "progress"
	if len(lines) == 0 && a.logbook != nil {
		lines = a.history
		name = filepath.Base(a.logbook.Path())
	}
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", name))
	styled := make([]string, 0, len(lines))
	for _, line := range lines {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
		if strings.Contains(line, "Error") {
			style = style.Foreground(lipgloss.Color("#FF6B6B"))
		}
		styled = append(styled, style.Render(line))
	}
	return head + "\n" + strings.Join(styled, "\n")
}
