package explorer

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// HandleKey processes one key event. Remote calls it triggers run to
// completion before it returns.
func (e *Explorer) HandleKey(ctx context.Context, msg tea.KeyMsg) Effect {
	if key.Matches(msg, e.keys.ForceQuit) {
		return Effect{Quit: true}
	}
	switch e.state.Mode {
	case ModeSearch:
		e.handleSearchKey(msg)
		return Effect{}
	case ModeCommand:
		e.handleCommandKey(ctx, msg)
		return Effect{}
	}
	return e.handleBrowserKey(ctx, msg)
}

func (e *Explorer) handleBrowserKey(ctx context.Context, msg tea.KeyMsg) Effect {
	k := e.keys
	var eff Effect

	switch {
	case key.Matches(msg, k.Quit):
		return Effect{Quit: true}
	case key.Matches(msg, k.Up):
		e.moveGrid(-1, 0)
	case key.Matches(msg, k.Down):
		e.moveGrid(1, 0)
	case key.Matches(msg, k.Left):
		e.moveGrid(0, -1)
	case key.Matches(msg, k.Right):
		e.moveGrid(0, 1)
	case key.Matches(msg, k.PageDown):
		e.move(pageStep)
	case key.Matches(msg, k.PageUp):
		e.move(-pageStep)
	case key.Matches(msg, k.Open):
		eff = e.enterSelected(ctx)
	case key.Matches(msg, k.Parent):
		if !e.ChangeDirectory(ctx, e.parentDir()) {
			e.state.Message = "Error: failed to change to parent directory"
		}
	case key.Matches(msg, k.Reload):
		e.Reload(ctx)
	case key.Matches(msg, k.Edit):
		if entry, ok := e.regularSelection(); ok {
			eff = e.edit(entry.Name)
		}
	case key.Matches(msg, k.View):
		if entry, ok := e.regularSelection(); ok {
			eff = e.view(entry.Name)
		}
	case key.Matches(msg, k.Download):
		if entry, ok := e.regularSelection(); ok {
			e.download(ctx, entry.Name)
		}
	case key.Matches(msg, k.Command):
		e.cmds.Show()
	}

	e.ensureVisible()
	return eff
}

func (e *Explorer) handleCommandKey(ctx context.Context, msg tea.KeyMsg) {
	k := e.keys
	p := &e.state.Panel
	idle := p.Input == ""

	switch {
	case key.Matches(msg, k.Close):
		e.cmds.Hide()
	case matchesWhenIdle(msg, k.Search, idle):
		e.cmds.BeginSearch()
	case matchesWhenIdle(msg, k.NextMatch, idle):
		e.cmds.Navigate(1)
	case matchesWhenIdle(msg, k.PrevMatch, idle):
		e.cmds.Navigate(-1)
	case key.Matches(msg, k.ScrollUp):
		e.cmds.ScrollPage(1)
	case key.Matches(msg, k.ScrollDown):
		e.cmds.ScrollPage(-1)
	case key.Matches(msg, k.Run):
		e.cmds.Execute(ctx)
	case key.Matches(msg, k.DeleteBack):
		p.DeleteBackward()
	case key.Matches(msg, k.DeleteFwd):
		p.DeleteForward()
	case key.Matches(msg, k.CursorLeft):
		p.MoveCursor(-1)
	case key.Matches(msg, k.CursorRight):
		p.MoveCursor(1)
	case key.Matches(msg, k.LineStart):
		p.CursorHome()
	case key.Matches(msg, k.LineEnd):
		p.CursorEnd()
	case key.Matches(msg, k.HistoryPrev):
		p.BrowseHistory(-1)
	case key.Matches(msg, k.HistoryNext):
		p.BrowseHistory(1)
	case key.Matches(msg, k.KillLine):
		p.KillToStart()
	default:
		if text, ok := typedText(msg); ok {
			p.Insert(text)
		}
	}
}

func (e *Explorer) handleSearchKey(msg tea.KeyMsg) {
	k := e.keys
	p := &e.state.Panel

	switch {
	case key.Matches(msg, k.Cancel):
		e.cmds.CancelSearch()
	case key.Matches(msg, k.Run):
		e.cmds.CommitSearch()
	case key.Matches(msg, k.DeleteBack):
		if r := []rune(p.SearchQuery); len(r) > 0 {
			p.SearchQuery = string(r[:len(r)-1])
		}
	case key.Matches(msg, k.KillLine):
		p.SearchQuery = ""
	default:
		if text, ok := typedText(msg); ok {
			p.SearchQuery += text
		}
	}
}
