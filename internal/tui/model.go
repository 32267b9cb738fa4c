// Package tui provides the interactive task manager screen.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tasksync/internal/models"
	"tasksync/internal/tasksync"
)

// Controller is the task source the screen drives. *tasksync.Controller
// satisfies it.
type Controller interface {
	Start(ctx context.Context)
	AddTask(ctx context.Context, text string) error
	ToggleTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error
	Reconnect(ctx context.Context) bool
	SyncLocalToBackend(ctx context.Context) (tasksync.SyncReport, error)

	Tasks() []models.Task
	View(f models.Filter) []models.Task
	UsingRemote() bool
	Counts() (localCount, remoteCount int)
}

// Mode is the input mode of the screen.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
)

// Model is the bubbletea model for the task manager.
type Model struct {
	ctx  context.Context
	ctrl Controller

	keys   KeyMap
	styles Styles
	help   help.Model
	input  textinput.Model

	tasks  []models.Task
	status string
	err    error

	filter  models.Filter
	mode    Mode
	cursor  int
	pending int
	started bool
	width   int
}

// New creates a Model. ctx bounds every controller call the screen makes.
func New(ctx context.Context, ctrl Controller) *Model {
	ti := textinput.New()
	ti.Placeholder = "Add a new task..."
	ti.CharLimit = 500

	return &Model{
		ctx:    ctx,
		ctrl:   ctrl,
		keys:   DefaultKeyMap(),
		styles: DefaultStyles(),
		help:   help.New(),
		input:  ti,
		filter: models.FilterAll,
	}
}

// Init starts the initial remote load.
func (m *Model) Init() tea.Cmd {
	m.pending++
	return func() tea.Msg {
		m.ctrl.Start(m.ctx)
		return MsgStarted{}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case MsgStarted:
		m.done()
		m.started = true
		m.refresh()
		return m, nil

	case MsgTaskChanged:
		m.done()
		m.err = msg.Err
		m.refresh()
		return m, nil

	case MsgReconnected:
		m.done()
		if msg.OK {
			m.status = "Reconnected to backend"
		} else {
			m.status = "Backend still unavailable"
		}
		m.refresh()
		return m, nil

	case MsgSynced:
		m.done()
		m.err = msg.Err
		r := msg.Report
		m.status = fmt.Sprintf("Synced %d, skipped %d, cleared %d local", r.Pushed, r.Skipped, r.Removed)
		if r.Failed {
			m.status += " (stopped: backend unavailable)"
		}
		m.refresh()
		return m, nil
	}

	if m.mode == ModeAdd {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeAdd {
		return m.handleAddKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filter = m.filter.Next()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.mode = ModeAdd
		m.err = nil
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Toggle):
		task, ok := m.SelectedTask()
		if !ok {
			return m, nil
		}
		return m, m.run("toggle", func(ctx context.Context) error {
			return m.ctrl.ToggleTask(ctx, task.ID)
		})

	case key.Matches(msg, m.keys.Delete):
		task, ok := m.SelectedTask()
		if !ok {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) error {
			return m.ctrl.DeleteTask(ctx, task.ID)
		})

	case key.Matches(msg, m.keys.Reconnect):
		m.pending++
		return m, func() tea.Msg {
			return MsgReconnected{OK: m.ctrl.Reconnect(m.ctx)}
		}

	case key.Matches(msg, m.keys.Sync):
		if local, _ := m.ctrl.Counts(); local == 0 {
			m.status = "No local tasks to sync"
			return m, nil
		}
		m.pending++
		return m, func() tea.Msg {
			report, err := m.ctrl.SyncLocalToBackend(m.ctx)
			return MsgSynced{Report: report, Err: err}
		}
	}
	return m, nil
}

func (m *Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = ModeNormal
		m.input.Reset()
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		text := m.input.Value()
		m.mode = ModeNormal
		m.input.Reset()
		m.input.Blur()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		return m, m.run("add", func(ctx context.Context) error {
			return m.ctrl.AddTask(ctx, text)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run wraps a controller call in a command reporting MsgTaskChanged.
func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	m.pending++
	return func() tea.Msg {
		return MsgTaskChanged{Op: op, Err: fn(m.ctx)}
	}
}

func (m *Model) done() {
	if m.pending > 0 {
		m.pending--
	}
}

// refresh re-reads the filtered list from the controller and clamps the cursor.
func (m *Model) refresh() {
	m.tasks = m.ctrl.View(m.filter)
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SelectedTask returns the task under the cursor.
func (m *Model) SelectedTask() (models.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return models.Task{}, false
	}
	return m.tasks[m.cursor], true
}
