package tui

import (
	"fmt"
	"strings"

	"tasksync/internal/models"
)

const (
	bannerChecking    = "Checking backend..."
	bannerConnected   = "Backend connected"
	bannerUnavailable = "Backend unavailable, using local storage. Press r to reconnect or s to sync local tasks."
)

var filterTabs = []struct {
	filter models.Filter
	label  string
}{
	{models.FilterAll, "All"},
	{models.FilterActive, "Active"},
	{models.FilterCompleted, "Completed"},
}

// View renders the screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Task Manager"))
	b.WriteString("\n")
	b.WriteString(m.renderBanner())
	b.WriteString("\n")

	localCount, remoteCount := m.ctrl.Counts()
	b.WriteString(m.styles.Counts.Render(fmt.Sprintf("Local tasks: %d · Backend tasks: %d", localCount, remoteCount)))
	b.WriteString("\n\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.mode == ModeAdd {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderTasks())
	b.WriteString("\n")

	remaining := models.Remaining(m.ctrl.Tasks())
	b.WriteString(m.styles.Footer.Render(fmt.Sprintf("%d tasks remaining", remaining)))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(m.styles.Status.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return m.styles.App.Render(b.String())
}

func (m *Model) renderBanner() string {
	switch {
	case !m.started && m.pending > 0:
		return m.styles.Checking.Render(bannerChecking)
	case m.ctrl.UsingRemote():
		return m.styles.Connected.Render(bannerConnected)
	default:
		return m.styles.Unavailable.Render(bannerUnavailable)
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(filterTabs))
	for _, tab := range filterTabs {
		style := m.styles.Tab
		if tab.filter == m.filter {
			style = m.styles.TabActive
		}
		tabs = append(tabs, style.Render(tab.label))
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderTasks() string {
	if len(m.tasks) == 0 {
		return m.styles.Empty.Render("No tasks")
	}

	lines := make([]string, 0, len(m.tasks))
	for i, t := range m.tasks {
		check := "[ ]"
		style := m.styles.Task
		if t.Completed {
			check = "[x]"
			style = m.styles.TaskCompleted
		}
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
			style = m.styles.TaskSelected
		}
		lines = append(lines, cursor+style.Render(check+" "+t.Text))
	}
	return strings.Join(lines, "\n")
}
