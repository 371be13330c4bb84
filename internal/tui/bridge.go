package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Bridge is a refresh.ProgressSink and refresh.BusyIndicator that forwards
// callbacks to a running program. Callbacks before Attach are dropped.
type Bridge struct {
	mu      sync.RWMutex
	program *tea.Program
}

// Attach routes future callbacks to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Report implements refresh.ProgressSink.
func (b *Bridge) Report(message string) { b.send(progressMsg(message)) }

// ShowBusy implements refresh.BusyIndicator.
func (b *Bridge) ShowBusy() { b.send(busyMsg(true)) }

// HideBusy implements refresh.BusyIndicator.
func (b *Bridge) HideBusy() { b.send(busyMsg(false)) }

func (b *Bridge) send(msg tea.Msg) {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, app *App, bridge *Bridge) error {
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)
	defer bridge.Attach(nil)
	_, err := p.Run()
	return err
}
