package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

type taskCreatedMsg struct {
	task tasks.Task
	err  error
}

type clipboardMsg struct {
	code string
	err  error
}

func createTaskCmd(ctx context.Context, manager TaskManager) tea.Cmd {
	return func() tea.Msg {
		task, err := manager.CreateTask(ctx)
		return taskCreatedMsg{task: task, err: err}
	}
}

func copyCodeCmd(copyFn func(string) error, code string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{code: code, err: copyFn(code)}
	}
}

func (m Model) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "esc", "q":
		return m.backToMenu()
	case "enter", "g":
		if m.creating {
			return m, nil
		}
		m.creating = true
		m.setStatus(statusInfo, "Generating task ID...")
		return m, createTaskCmd(m.ctx, m.tasks)
	}
	return m, nil
}

func (m Model) handleTaskCreated(msg taskCreatedMsg) (tea.Model, tea.Cmd) {
	m.creating = false
	if msg.err != nil {
		m.logger.Error("create task", "error", msg.err)
		m.setStatus(statusError, "Error: %v", msg.err)
		return m, nil
	}
	m.lastCreated = msg.task
	m.setStatus(statusOK, "Created %s", msg.task.Code)
	return m, copyCodeCmd(m.clipboard, msg.task.Code)
}

func (m Model) handleClipboard(msg clipboardMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("copy to clipboard", "code", msg.code, "error", msg.err)
		m.setStatus(statusWarn, "%s (clipboard unavailable: %v)", msg.code, msg.err)
		return m, nil
	}
	if m.screen == screenCreate {
		m.setStatus(statusOK, "Created %s (copied to clipboard)", msg.code)
	} else {
		m.setStatus(statusOK, "Copied %s to clipboard", msg.code)
	}
	return m, nil
}

func (m Model) viewCreate() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create Task"))
	b.WriteString("\n")
	if m.lastCreated.Code != "" {
		b.WriteString(codeStyle.Render(m.lastCreated.Code))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Use this code in your branch name or PR title."))
	} else {
		b.WriteString("Press " + boldStyle.Render("enter") + " or " + boldStyle.Render("g") + " to generate a new task ID.")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter/g generate | esc back"))
	return b.String()
}
