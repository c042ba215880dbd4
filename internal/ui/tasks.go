package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

var taskColumns = []table.Column{
	{Title: "ID", Width: 10},
	{Title: "Status", Width: 8},
	{Title: "Created", Width: 16},
	{Title: "PR", Width: 8},
	{Title: "Title", Width: 50},
}

type tasksLoadedMsg struct {
	rows []tasks.TaskRow
	err  error
}

type taskDeletedMsg struct {
	code    string
	deleted bool
	err     error
}

type prOpenedMsg struct {
	repo   string
	number int
	err    error
}

func loadTasksCmd(ctx context.Context, manager TaskManager) tea.Cmd {
	return func() tea.Msg {
		rows, err := manager.GetAllTasks(ctx)
		return tasksLoadedMsg{rows: rows, err: err}
	}
}

func deleteTaskCmd(ctx context.Context, manager TaskManager, code string) tea.Cmd {
	return func() tea.Msg {
		deleted, err := manager.DeleteTask(ctx, code)
		return taskDeletedMsg{code: code, deleted: deleted, err: err}
	}
}

func openPRCmd(ctx context.Context, opener PROpener, repo string, number int) tea.Cmd {
	return func() tea.Msg {
		return prOpenedMsg{repo: repo, number: number, err: opener.OpenPR(ctx, repo, number)}
	}
}

func (m Model) updateTasks(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.confirmDelete != "" {
		switch key.String() {
		case "y", "Y", "enter":
			code := m.confirmDelete
			m.confirmDelete = ""
			return m, deleteTaskCmd(m.ctx, m.tasks, code)
		case "n", "N", "esc":
			m.confirmDelete = ""
			m.setStatus(statusInfo, "Delete cancelled")
		}
		return m, nil
	}

	switch key.String() {
	case "esc", "q":
		return m.backToMenu()
	case "r":
		m.loadingTasks = true
		return m, loadTasksCmd(m.ctx, m.tasks)
	case "d":
		row, ok := m.selectedTask()
		if !ok {
			m.setStatus(statusWarn, "No task selected")
			return m, nil
		}
		m.confirmDelete = row.Code
		return m, nil
	case "o":
		row, ok := m.selectedTask()
		if !ok {
			m.setStatus(statusWarn, "No task selected")
			return m, nil
		}
		if !row.HasPR() {
			m.setStatus(statusWarn, "%s has no linked PR", row.Code)
			return m, nil
		}
		if m.opener == nil {
			m.setStatus(statusError, "No browser opener configured")
			return m, nil
		}
		return m, openPRCmd(m.ctx, m.opener, row.PRRepo, row.PRNumber)
	case "c":
		row, ok := m.selectedTask()
		if !ok {
			m.setStatus(statusWarn, "No task selected")
			return m, nil
		}
		return m, copyCodeCmd(m.clipboard, row.Code)
	}

	var cmd tea.Cmd
	m.taskTable, cmd = m.taskTable.Update(msg)
	return m, cmd
}

func (m Model) selectedTask() (tasks.TaskRow, bool) {
	index := m.taskTable.Cursor()
	if index < 0 || index >= len(m.taskRows) {
		return tasks.TaskRow{}, false
	}
	return m.taskRows[index], true
}

func (m Model) handleTasksLoaded(msg tasksLoadedMsg) (tea.Model, tea.Cmd) {
	m.loadingTasks = false
	if msg.err != nil {
		m.logger.Error("load tasks", "error", msg.err)
		m.setStatus(statusError, "Error: %v", msg.err)
		return m, nil
	}
	m.taskRows = msg.rows
	m.taskTable.SetRows(taskTableRows(msg.rows))
	if cursor := m.taskTable.Cursor(); cursor >= len(msg.rows) {
		m.taskTable.SetCursor(max(len(msg.rows)-1, 0))
	}
	return m, nil
}

func (m Model) handleTaskDeleted(msg taskDeletedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err != nil:
		m.logger.Error("delete task", "code", msg.code, "error", msg.err)
		m.setStatus(statusError, "Error: %v", msg.err)
		return m, nil
	case !msg.deleted:
		m.setStatus(statusWarn, "%s no longer exists", msg.code)
	default:
		m.setStatus(statusOK, "Deleted %s", msg.code)
	}
	m.loadingTasks = true
	return m, loadTasksCmd(m.ctx, m.tasks)
}

func (m Model) handlePROpened(msg prOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("open pull request", "repo", msg.repo, "number", msg.number, "error", msg.err)
		m.setStatus(statusError, "Could not open PR #%d: %v", msg.number, msg.err)
		return m, nil
	}
	m.setStatus(statusOK, "Opened PR #%d", msg.number)
	return m, nil
}

func taskTableRows(rows []tasks.TaskRow) []table.Row {
	result := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		pr := "-"
		if row.HasPR() {
			pr = fmt.Sprintf("#%d", row.PRNumber)
		}
		result = append(result, table.Row{
			row.Code,
			string(row.Status),
			humanize.Time(row.CreatedAt),
			pr,
			truncate(row.PRTitle, 50),
		})
	}
	return result
}

func (m Model) viewTasks() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString("\n")

	switch {
	case m.loadingTasks && len(m.taskRows) == 0:
		b.WriteString(dimStyle.Render("Loading tasks..."))
	case len(m.taskRows) == 0:
		b.WriteString(dimStyle.Render("No tasks yet. Create one from the menu."))
	default:
		b.WriteString(m.taskTable.View())
	}
	b.WriteString("\n")

	if m.confirmDelete != "" {
		b.WriteString(warnStyle.Render(fmt.Sprintf("Delete %s and its PR links? (y/n)", m.confirmDelete)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("d delete | o open PR | c copy ID | r refresh | esc back"))
	return b.String()
}
