// Package ui is the bubbletea front end of rex. It owns no session state:
// every key goes to the explorer and every frame is drawn from its state.
package ui

import (
	"context"
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"rex/internal/explorer"
)

// Fullscreener starts interactive remote programs that take over the
// terminal.
type Fullscreener interface {
	Fullscreen(command string) tea.ExecCommand
}

// reloadMsg asks for the first listing once the program is running.
type reloadMsg struct{}

// handoffDoneMsg is sent when a full-screen remote program has exited.
type handoffDoneMsg struct {
	command string
	err     error
}

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	explorer *explorer.Explorer
	screen   Fullscreener
	help     help.Model
	showHelp bool
	width    int
	height   int
}

// New returns a model driving x. screen runs the hand-offs x asks for.
func New(ctx context.Context, x *explorer.Explorer, screen Fullscreener) Model {
	h := help.New()
	h.ShortSeparator = " | "
	return Model{ctx: ctx, explorer: x, screen: screen, help: h}
}

// Explorer returns the engine behind the model.
func (m Model) Explorer() *explorer.Explorer { return m.explorer }

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return reloadMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.explorer.Resize(msg.Width, msg.Height)
		return m, nil

	case reloadMsg:
		m.explorer.Reload(m.ctx)
		return m, nil

	case handoffDoneMsg:
		if msg.err != nil {
			log.Printf("[UI] %q exited: %v", msg.command, msg.err)
		}
		m.explorer.HandoffDone(m.ctx, msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.explorer.Keys()
	if m.showHelp {
		if key.Matches(msg, keys.ForceQuit) {
			return m, tea.Quit
		}
		m.showHelp = false
		return m, nil
	}
	if m.explorer.State().Mode == explorer.ModeBrowser && key.Matches(msg, keys.Help) {
		m.showHelp = true
		return m, nil
	}

	effect := m.explorer.HandleKey(m.ctx, msg)
	switch {
	case effect.Quit:
		return m, tea.Quit
	case effect.Handoff != "":
		return m, m.handoff(effect.Handoff)
	}
	return m, nil
}

// handoff suspends the program while command owns the terminal.
func (m Model) handoff(command string) tea.Cmd {
	log.Printf("[UI] handing terminal to %q", command)
	return tea.Exec(m.screen.Fullscreen(command), func(err error) tea.Msg {
		return handoffDoneMsg{command: command, err: err}
	})
}
