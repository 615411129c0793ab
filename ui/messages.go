package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/videoenhance/workflow"
)

// TUI message types

// SnapshotMsg carries a workflow state change into the program
type SnapshotMsg struct {
	Snapshot workflow.Snapshot
}

// SubmittedMsg reports whether the workflow accepted the file
type SubmittedMsg struct {
	Err error
}

// SavedMsg reports the outcome of saving the enhanced video
type SavedMsg struct {
	Path string
	Err  error
}

// Feed hands workflow snapshots to a bubbletea program. It only keeps the newest
// snapshot, so publishing never blocks the workflow even when the program is busy.
type Feed struct {
	ch chan workflow.Snapshot
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{ch: make(chan workflow.Snapshot, 1)}
}

// Publish replaces whatever snapshot is still waiting; use it as workflow OnChange
func (f *Feed) Publish(s workflow.Snapshot) {
	select {
	case <-f.ch:
	default:
	}
	select {
	case f.ch <- s:
	default:
	}
}

// Wait returns a command that delivers the next snapshot
func (f *Feed) Wait() tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: <-f.ch}
	}
}
