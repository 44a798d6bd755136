package explorer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"rex/internal/remote"
)

// DefaultDownloadTimeout bounds one file download when none is configured.
const DefaultDownloadTimeout = 5 * time.Minute

// Reload lists the current directory again.
func (e *Explorer) Reload(ctx context.Context) {
	cwd, entries, err := e.remote.ListDirectory(ctx, e.state.Cwd)
	if err != nil {
		log.Printf("[Explorer] reload %s: %v", e.state.Cwd, err)
		e.state.Message = err.Error()
		return
	}
	e.install(cwd, entries)
	e.state.Message = fmt.Sprintf("Loaded %d entries", len(entries)-1)
}

// ChangeDirectory lists target and, on success, makes it the current
// directory. On failure the previous listing is kept.
func (e *Explorer) ChangeDirectory(ctx context.Context, target string) bool {
	old := e.state.Cwd
	cwd, entries, err := e.remote.ListDirectory(ctx, target)
	if err != nil {
		log.Printf("[Explorer] cd %s: %v", target, err)
		e.state.Message = err.Error()
		return false
	}
	e.install(cwd, entries)
	if old != cwd {
		e.state.Message = fmt.Sprintf("Entered %s (%d entries)", cwd, len(entries)-1)
	} else {
		e.state.Message = fmt.Sprintf("Staying in %s (%d entries)", cwd, len(entries)-1)
	}
	return true
}

// HandoffDone is called when a full-screen remote program exits. The
// remote side may have changed, so the directory is listed again.
func (e *Explorer) HandoffDone(ctx context.Context, err error) {
	if err != nil {
		log.Printf("[Explorer] hand-off exited: %v", err)
	}
	e.Reload(ctx)
}

func (e *Explorer) install(cwd string, entries []remote.Entry) {
	e.state.SetListing(cwd, entries)
	if e.onListing != nil {
		e.onListing(cwd)
	}
}

func (e *Explorer) parentDir() string {
	return path.Dir(e.state.Cwd)
}

func (e *Explorer) moveGrid(dRow, dCol int) {
	rows := e.Layout().Grid.Rows
	if target, ok := MoveTarget(e.state.Selected, len(e.state.Entries), rows, dRow, dCol); ok {
		e.state.Selected = target
	}
}

func (e *Explorer) move(delta int) {
	if len(e.state.Entries) == 0 {
		return
	}
	e.state.Selected = min(max(e.state.Selected+delta, 0), len(e.state.Entries)-1)
}

// enterSelected opens the selection. Whether it is a directory is decided
// by trying to list it, not by the listing's marker, which can be stale or
// wrong for symlinks.
func (e *Explorer) enterSelected(ctx context.Context) Effect {
	entry, ok := e.state.Current()
	if !ok {
		return Effect{}
	}
	if entry.IsParent() {
		e.ChangeDirectory(ctx, e.parentDir())
		return Effect{}
	}
	if e.ChangeDirectory(ctx, path.Join(e.state.Cwd, entry.Name)) {
		return Effect{}
	}
	e.state.Message = fmt.Sprintf("Not a directory: %s. Opening file.", entry.Name)
	return e.view(entry.Name)
}

// regularSelection returns the selected entry when it is a plain file.
func (e *Explorer) regularSelection() (remote.Entry, bool) {
	entry, ok := e.state.Current()
	if !ok || entry.IsDir || entry.IsParent() {
		return remote.Entry{}, false
	}
	return entry, true
}

func (e *Explorer) view(name string) Effect {
	log.Printf("[Explorer] view %s in %s", name, e.state.Cwd)
	return Effect{Handoff: remote.ViewCommand(e.state.Cwd, name)}
}

func (e *Explorer) edit(name string) Effect {
	log.Printf("[Explorer] edit %s in %s with %v", name, e.state.Cwd, e.editor)
	return Effect{Handoff: remote.EditCommand(e.state.Cwd, e.editor, name)}
}

// download copies the named file to the local directory, giving up after
// the download timeout.
func (e *Explorer) download(ctx context.Context, name string) {
	d, ok := e.remote.(Downloader)
	if !ok {
		e.state.Message = "Download not supported"
		return
	}
	ctx, cancel := context.WithTimeout(ctx, e.downloadTimeout)
	defer cancel()

	err := d.Download(ctx, path.Join(e.state.Cwd, name), e.localDir)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Printf("[Explorer] download %s timed out after %s", name, e.downloadTimeout)
		e.state.Message = fmt.Sprintf("Download failed: timed out after %s", e.downloadTimeout)
		return
	}
	if err != nil {
		log.Printf("[Explorer] download %s: %v", name, err)
		e.state.Message = "Download failed: " + err.Error()
		return
	}
	e.state.Message = fmt.Sprintf("Downloaded %s to %s", name, e.localDir)
}
