package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	ResultView
	TracksView
)

const maxRecentFailures = 5

// SyncFunc runs a sync, reporting progress on the channel. It must not close the channel.
type SyncFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	run          SyncFunc
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	active       *syncRun
	update       tasks.ProgressUpdate
	fetched      int
	failures     []string
	trackList    list.Model
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model that starts run on Init.
func NewModel(ctx context.Context, run SyncFunc) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ok

	return &Model{
		ctx:     ctx,
		view:    SyncView,
		run:     run,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the sync outcome once the program has exited. Both are nil if the user quit before it finished.
func (m *Model) Result() (*tasks.SyncResult, error) {
	return m.result, m.err
}

// Init starts the sync and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSync())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-20, 20), 80)
		if m.view == TracksView {
			m.trackList.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.bar.Update(msg)
		m.bar = model.(progress.Model)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			return m, tea.Batch(m.applyUpdate(msg.data.(tasks.ProgressUpdate)), m.waitForProgress())
		case MsgSyncComplete:
			done := msg.data.(syncComplete)
			m.result, m.err = done.result, done.err
			m.view = ResultView
			return m, nil
		}
	}

	if m.view == TracksView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applyUpdate records a progress update and returns the bar animation command.
func (m *Model) applyUpdate(u tasks.ProgressUpdate) tea.Cmd {
	m.update = u

	switch u.Phase {
	case tasks.FetchLiked:
		m.fetched++
	case tasks.RecordFailed:
		m.failures = append(m.failures, u.Message)
		if len(m.failures) > maxRecentFailures {
			m.failures = m.failures[1:]
		}
	}

	if u.Total > 0 {
		return m.bar.SetPercent(float64(u.Step) / float64(u.Total))
	}
	return nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.view == TracksView && m.trackList.FilterState() == list.Filtering {
			break
		}
		return m, tea.Quit
	case m.view == ResultView && key.Matches(msg, m.keys.tracks) && m.result != nil:
		m.trackList = list.New(resultItems(m.result), list.NewDefaultDelegate(), m.width-4, m.height-6)
		m.trackList.Title = fmt.Sprintf("%d tracks, %d failures", len(m.result.Tracks), len(m.result.Failures))
		m.view = TracksView
		return m, nil
	case m.view == TracksView && key.Matches(msg, m.keys.back) && m.trackList.FilterState() == list.Unfiltered:
		m.view = ResultView
		return m, nil
	}

	if m.view == TracksView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// syncRun carries one sync's progress and outcome. result and err are written before progress is closed.
type syncRun struct {
	progress chan tasks.ProgressUpdate
	result   *tasks.SyncResult
	err      error
}

func (m *Model) startSync() tea.Cmd {
	run := &syncRun{progress: make(chan tasks.ProgressUpdate, 50)}
	m.active = run

	go func() {
		run.result, run.err = m.run(m.ctx, run.progress)
		close(run.progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	run := m.active
	return func() tea.Msg {
		update, ok := <-run.progress
		if !ok {
			return syncCompleteMsg(run.result, run.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	case TracksView:
		return fmt.Sprintf("%s\n%s", m.trackList.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit}))
	default:
		return ""
	}
}

func (m *Model) renderSync() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Syncing liked tracks"))
	b.WriteString("\n")

	phase := "Starting..."
	switch m.update.Phase {
	case tasks.FetchLiked:
		phase = fmt.Sprintf("Fetching page %d", m.fetched)
	case tasks.Reconcile, tasks.RecordFailed:
		phase = fmt.Sprintf("Reconciling (%d/%d)", m.update.Step, m.update.Total)
	case tasks.Summary:
		phase = "Page complete"
	}
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), phase)
	b.WriteString(m.bar.View())
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render(m.update.Message))

	if len(m.failures) > 0 {
		b.WriteString("\n\n")
		for _, f := range m.failures {
			b.WriteString(styles.warn.Render(f))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.tracks, m.keys.quit})

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Sync failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}

	var b strings.Builder
	b.WriteString(RenderSummary(m.result.Stats, m.result.Failures))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Stopped early: %v", m.err)))
	}
	fmt.Fprintf(&b, "\n%s\n\n%s", styles.help.Render(fmt.Sprintf("%d pages, %d of %d liked tracks", m.result.Pages, m.result.Fetched, m.result.Total)), helpView)
	return b.String()
}
