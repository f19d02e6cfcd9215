package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rebeliceyang/lazyroster/internal/export"
	"github.com/rebeliceyang/lazyroster/internal/history"
)

var (
	errNoReload  = errors.New("dataset has no source to reload from")
	errNoHistory = errors.New("snapshot history is disabled")
)

// ExportedMsg is sent when an export finished
type ExportedMsg struct {
	Path   string
	Format export.Format
	Rows   int
	Err    error
}

// CopiedMsg is sent when the view was copied to the clipboard
type CopiedMsg struct {
	Rows int
	Err  error
}

// SnapshotSavedMsg is sent when a snapshot was written to history
type SnapshotSavedMsg struct {
	ID  int64
	Err error
}

// clipboardWrite is swapped out in tests
var clipboardWrite = clipboard.WriteAll

// copyView copies the current view as TSV
func (a *App) copyView() tea.Cmd {
	v := a.session.View()
	return func() tea.Msg {
		var buf bytes.Buffer
		if err := export.Write(&buf, v, export.FormatTSV); err != nil {
			return CopiedMsg{Err: err}
		}
		if err := clipboardWrite(buf.String()); err != nil {
			return CopiedMsg{Err: fmt.Errorf("failed to copy to clipboard: %w", err)}
		}
		return CopiedMsg{Rows: v.Len()}
	}
}

// exportView writes the current view into the export directory
func (a *App) exportView() tea.Cmd {
	v := a.session.View()
	format, err := export.ParseFormat(a.config.Export.DefaultFormat)
	if err != nil {
		return func() tea.Msg { return ExportedMsg{Err: err} }
	}
	path := ExportPath(a.config.Export.Directory, v.Dataset().Name(), format, time.Now())

	return func() tea.Msg {
		err := export.ToFile(v, path, format)
		return ExportedMsg{Path: path, Format: format, Rows: v.Len(), Err: err}
	}
}

// ExportPath names an export file after the dataset and the time
func ExportPath(dir, datasetName string, format export.Format, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(datasetName), filepath.Ext(datasetName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "roster"
	}
	name := fmt.Sprintf("%s-%s.%s", base, now.Format("20060102-150405"), format)
	return filepath.Join(dir, name)
}

// saveSnapshot records the current rules, search and counts
func (a *App) saveSnapshot() tea.Cmd {
	if a.history == nil {
		return func() tea.Msg { return SnapshotSavedMsg{Err: errNoHistory} }
	}
	snap := a.session.Snapshot()
	store, keep := a.history, a.config.History.MaxEntries

	return func() tea.Msg {
		entry := history.NewSnapshot(snap.Dataset.Name(), snap.Rules, snap.Query, snap.View)
		id, err := store.Add(entry)
		if err != nil {
			return SnapshotSavedMsg{Err: err}
		}
		if keep > 0 {
			if _, err := store.Prune(keep); err != nil {
				return SnapshotSavedMsg{ID: id, Err: err}
			}
		}
		return SnapshotSavedMsg{ID: id}
	}
}

// reloadDataset fetches the dataset again in the background
func (a *App) reloadDataset() tea.Cmd {
	if a.reload == nil {
		return func() tea.Msg { return ReloadedMsg{Err: errNoReload} }
	}
	reload := a.reload
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ds, err := reload(ctx)
		return ReloadedMsg{Dataset: ds, Err: err}
	}
}
