package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agrovihan/agrovihan/internal/syncer"
)

// Key bindings.
const (
	keySync   = "s"
	keyToggle = "o"
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
)

// Syncer is the part of syncer.Coordinator the status view drives.
type Syncer interface {
	State() syncer.State
	Subscribe() (<-chan syncer.State, func())
	SyncAll(ctx context.Context) (syncer.Report, error)
}

// StateMsg carries a new coordinator state.
type StateMsg syncer.State

// SyncDoneMsg is sent when a sync pass started from the view finishes.
type SyncDoneMsg struct {
	Report syncer.Report
	Err    error
}

// subscriptionClosedMsg is sent when the coordinator closes the state channel.
type subscriptionClosedMsg struct{}

// StatusModel is the Bubble Tea model for the sync status view.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type StatusModel struct {
	ctx    context.Context
	syncer Syncer
	toggle func()

	states      <-chan syncer.State
	unsubscribe func()

	state      syncer.State
	lastReport *syncer.Report
	syncErr    error
	syncing    bool

	loading *LoadingState
	width   int
	closed  bool
	quit    bool
}

// NewStatusModel subscribes to s. toggle flips manual connectivity and may be
// nil when connectivity is probed.
func NewStatusModel(ctx context.Context, s Syncer, toggle func()) StatusModel {
	states, unsubscribe := s.Subscribe()
	return StatusModel{
		ctx:         ctx,
		syncer:      s,
		toggle:      toggle,
		states:      states,
		unsubscribe: unsubscribe,
		state:       s.State(),
		loading:     NewLoadingState(),
		width:       defaultWidth,
	}
}

// Init starts the spinner and the state subscription.
func (m StatusModel) Init() tea.Cmd {
	return tea.Batch(m.loading.Init(), waitForState(m.states))
}

// Close ends the state subscription.
func (m StatusModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// State returns the last state the view received.
func (m StatusModel) State() syncer.State { return m.state }

func waitForState(ch <-chan syncer.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return StateMsg(s)
	}
}

func (m StatusModel) runSync() tea.Cmd {
	ctx, s := m.ctx, m.syncer
	return func() tea.Msg {
		report, err := s.SyncAll(ctx)
		return SyncDoneMsg{Report: report, Err: err}
	}
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StateMsg:
		m.state = syncer.State(msg)
		return m, waitForState(m.states)

	case subscriptionClosedMsg:
		m.closed = true
		return m, nil

	case SyncDoneMsg:
		m.syncing = false
		m.syncErr = msg.Err
		report := msg.Report
		m.lastReport = &report
		return m, nil

	case spinner.TickMsg:
		return m, m.loading.Update(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m StatusModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyCtrlC:
		m.quit = true
		m.Close()
		return m, tea.Quit
	case keySync:
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.syncErr = nil
		return m, m.runSync()
	case keyToggle:
		if m.toggle != nil {
			m.toggle()
		}
		return m, nil
	}
	return m, nil
}
