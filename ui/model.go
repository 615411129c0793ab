package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/videoenhance/objecturl"
	"github.com/lepinkainen/videoenhance/video"
	"github.com/lepinkainen/videoenhance/workflow"
)

// Workflow is the part of workflow.Controller the screen drives
type Workflow interface {
	Submit(ctx context.Context, file workflow.SelectedFile) error
	Reset()
	Snapshot() workflow.Snapshot
	Download(w io.Writer) (int64, error)
}

const maxProgressWidth = 60

// UploadModel renders one workflow instance
type UploadModel struct {
	ctx    context.Context
	ctrl   Workflow
	feed   *Feed
	file   workflow.SelectedFile
	output string

	snap      workflow.Snapshot
	submitErr *workflow.Error
	savedTo   string
	saveErr   error

	// UI components
	progress progress.Model
	spinner  spinner.Model

	// Layout
	width int

	// Control state
	autoSubmit bool
	quitting   bool

	// Version for display
	Version string
}

// NewUploadModel creates the screen for file. With autoSubmit the upload starts as
// soon as the program runs, otherwise it waits for enter.
func NewUploadModel(ctx context.Context, ctrl Workflow, feed *Feed, file workflow.SelectedFile, output, version string, autoSubmit bool) UploadModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ProcessingStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = maxProgressWidth

	if output == "" {
		output = workflow.DownloadName
	}

	return UploadModel{
		ctx:        ctx,
		ctrl:       ctrl,
		feed:       feed,
		file:       file,
		output:     output,
		snap:       ctrl.Snapshot(),
		progress:   prog,
		spinner:    sp,
		autoSubmit: autoSubmit,
		Version:    version,
	}
}

// Init implements tea.Model
func (m UploadModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.feed.Wait()}
	if m.autoSubmit {
		cmds = append(cmds, m.submit())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-10, 10), maxProgressWidth)

	case SnapshotMsg:
		cmds := []tea.Cmd{m.feed.Wait()}
		if msg.Snapshot.Seq >= m.snap.Seq {
			m.snap = msg.Snapshot
			cmds = append(cmds, m.progress.SetPercent(m.snap.Progress/100))
		}
		return m, tea.Batch(cmds...)

	case SubmittedMsg:
		if msg.Err != nil {
			m.submitErr = workflow.Explain(msg.Err)
		}

	case SavedMsg:
		m.savedTo, m.saveErr = msg.Path, msg.Err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		if p, ok := model.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd
	}

	return m, nil
}

func (m UploadModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		if m.snap.State == workflow.Idle {
			m.submitErr = nil
			return m, m.submit()
		}

	case "r":
		if m.snap.State == workflow.Failed || m.snap.State == workflow.Succeeded {
			m.ctrl.Reset()
			m.snap = m.ctrl.Snapshot()
			m.submitErr = nil
			m.savedTo, m.saveErr = "", nil
			return m, m.progress.SetPercent(0)
		}

	case "d":
		if m.snap.State == workflow.Succeeded {
			return m, saveCmd(m.ctrl, m.output)
		}
	}
	return m, nil
}

func (m UploadModel) submit() tea.Cmd {
	ctrl, ctx, file := m.ctrl, m.ctx, m.file
	return func() tea.Msg {
		return SubmittedMsg{Err: ctrl.Submit(ctx, file)}
	}
}

func saveCmd(ctrl Workflow, path string) tea.Cmd {
	return func() tea.Msg {
		return SavedMsg{Path: path, Err: SaveResult(ctrl, path)}
	}
}

// SaveResult writes the enhanced video of a finished workflow to path
func SaveResult(ctrl Workflow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	_, err = ctrl.Download(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// View implements tea.Model
func (m UploadModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	sections := []string{HeaderStyle.Render(fmt.Sprintf("Video Enhance %s", m.Version))}

	switch m.snap.State {
	case workflow.Idle:
		sections = append(sections, m.idleView())
	case workflow.Uploading:
		sections = append(sections, m.uploadingView())
	case workflow.Succeeded:
		sections = append(sections, m.resultView())
	case workflow.Failed:
		sections = append(sections, m.errorView())
	}

	return strings.Join(sections, "\n\n") + "\n"
}

func (m UploadModel) idleView() string {
	lines := []string{
		InfoStyle.Render(fmt.Sprintf("Selected: %s (%s, %s)", m.file.Name, m.file.MediaType, FormatSize(m.file.Size))),
	}
	if m.submitErr != nil {
		lines = append(lines, ErrorStyle.Render("❌ "+m.submitErr.Message))
	}
	lines = append(lines, "", ControlsStyle.Render("Controls: [enter] Upload  [q] Quit"))
	return strings.Join(lines, "\n")
}

func (m UploadModel) uploadingView() string {
	name := m.file.Name
	if m.snap.File != nil {
		name = m.snap.File.Name
	}

	status := fmt.Sprintf("%s Enhancing %s...", m.spinner.View(), name)
	if m.snap.Finalizing {
		status = SuccessStyle.Render("✅ Enhancement complete!")
	}

	return strings.Join([]string{
		status,
		m.progress.View(),
		"",
		ControlsStyle.Render("Controls: [q] Quit"),
	}, "\n")
}

func (m UploadModel) resultView() string {
	r := m.snap.Result
	if r == nil {
		return ""
	}

	lines := []string{SuccessStyle.Render("✅ Your video is ready")}
	lines = append(lines, LabelStyle.Render("Original")+" "+blobSummary(r.Before)+describe(beforeMeta(r)))
	lines = append(lines, LabelStyle.Render("Enhanced")+" "+blobSummary(r.After)+describe(afterMeta(r)))

	if c := r.Comparison; c != nil {
		if c.Before != nil && c.After != nil {
			change := "same resolution"
			if c.Upscaled() {
				change = "upscaled"
			}
			lines = append(lines, InfoStyle.Render(fmt.Sprintf("Resolution: %s → %s (%s)", c.Before.Resolution(), c.After.Resolution(), change)))
		}
		if c.FrameDistance >= 0 {
			lines = append(lines, InfoStyle.Render(fmt.Sprintf("Frame distance: %d/64", c.FrameDistance)))
		}
	}

	switch {
	case m.saveErr != nil:
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("❌ Could not save: %v", m.saveErr)))
	case m.savedTo != "":
		lines = append(lines, SuccessStyle.Render(fmt.Sprintf("💾 Saved to %s", m.savedTo)))
	}

	lines = append(lines, "", ControlsStyle.Render(fmt.Sprintf("Controls: [d] Download %s  [r] Enhance another  [q] Quit", m.output)))
	return strings.Join(lines, "\n")
}

func (m UploadModel) errorView() string {
	message := workflow.MsgGeneric
	if m.snap.Err != nil {
		message = m.snap.Err.Message
	}
	return strings.Join([]string{
		ErrorStyle.Render("❌ " + message),
		"",
		ControlsStyle.Render("Controls: [r] Try again  [q] Quit"),
	}, "\n")
}

func beforeMeta(r *workflow.Result) *video.Metadata {
	if r.Comparison != nil {
		return r.Comparison.Before
	}
	return nil
}

func afterMeta(r *workflow.Result) *video.Metadata {
	if r.Comparison != nil && r.Comparison.After != nil {
		return r.Comparison.After
	}
	return r.Metadata
}

// blobSummary names a held video by file name and size, its object URL is not
// reachable from a terminal
func blobSummary(h *objecturl.Handle) string {
	return fmt.Sprintf("%s, %s", h.Name(), FormatSize(h.Size()))
}

func describe(meta *video.Metadata) string {
	if meta == nil {
		return ""
	}
	return " (" + MetadataSummary(meta) + ")"
}

// MetadataSummary renders resolution, codec and duration as one line
func MetadataSummary(meta *video.Metadata) string {
	parts := []string{meta.Resolution()}
	if meta.Codec != "" {
		parts = append(parts, meta.Codec)
	}
	if meta.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.1f min", meta.DurationMins()))
	}
	return strings.Join(parts, ", ")
}

// FormatSize renders a byte count in MB the way the rest of the output does
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}
