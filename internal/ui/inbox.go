package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sumanthaka/TerminalTask/internal/reconcile"
	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

var inboxColumns = []table.Column{
	{Title: "Action", Width: 8},
	{Title: "Task ID", Width: 10},
	{Title: "PR #", Width: 8},
	{Title: "Branch", Width: 28},
	{Title: "Title", Width: 40},
}

type inboxScannedMsg struct {
	result reconcile.Result
	err    error
}

type itemResolvedMsg struct {
	outcome reconcile.Outcome
	err     error
}

func scanInboxCmd(ctx context.Context, inbox InboxService) tea.Cmd {
	return func() tea.Msg {
		result, err := inbox.Scan(ctx)
		return inboxScannedMsg{result: result, err: err}
	}
}

func resolveItemCmd(ctx context.Context, inbox InboxService, item reconcile.Item) tea.Cmd {
	return func() tea.Msg {
		outcome, err := inbox.Resolve(ctx, item)
		return itemResolvedMsg{outcome: outcome, err: err}
	}
}

func newCodeInput() textinput.Model {
	input := textinput.New()
	input.Placeholder = "tt-123"
	input.CharLimit = 24
	input.Prompt = "import as: "
	input.Cursor.SetMode(cursor.CursorStatic)
	return input
}

func (m Model) startScan() (tea.Model, tea.Cmd) {
	if m.inbox == nil {
		m.setStatus(statusError, "PR inbox is not configured")
		return m, nil
	}
	if m.scanning {
		return m, nil
	}
	m.scanning = true
	m.setStatus(statusInfo, "Scanning for PRs...")
	return m, tea.Batch(m.spinner.Tick, scanInboxCmd(m.ctx, m.inbox))
}

func (m Model) updateInbox(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.editingCode {
		return m.updateCodeInput(msg)
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "esc", "q":
		return m.backToMenu()
	case "r":
		return m.startScan()
	case "a", "enter":
		if m.scanning {
			return m, nil
		}
		item, ok := m.selectedItem()
		if !ok {
			m.setStatus(statusWarn, "No PR selected")
			return m, nil
		}
		m.scanning = true
		m.setStatus(statusInfo, "Attaching PR #%d...", item.PR.Number)
		return m, tea.Batch(m.spinner.Tick, resolveItemCmd(m.ctx, m.inbox, item))
	case "e":
		item, ok := m.selectedItem()
		if !ok || item.Kind != reconcile.KindImport {
			m.setStatus(statusWarn, "Only import items can take a different code")
			return m, nil
		}
		m.editingCode = true
		m.codeInput.SetValue(item.TaskCode)
		m.codeInput.CursorEnd()
		cmd := m.codeInput.Focus()
		return m, cmd
	case "i":
		item, ok := m.selectedItem()
		if !ok {
			m.setStatus(statusWarn, "No PR selected")
			return m, nil
		}
		if m.inbox.Ignore(item) {
			m.refreshItems()
			m.setStatus(statusWarn, "PR #%d ignored (only for this session)", item.PR.Number)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inboxTable, cmd = m.inboxTable.Update(msg)
	return m, cmd
}

func (m Model) updateCodeInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.editingCode = false
			m.codeInput.Blur()
			return m, nil
		case "enter":
			code, err := tasks.NormalizeCode(m.codeInput.Value())
			if err != nil {
				m.setStatus(statusError, "Error: %v", err)
				return m, nil
			}
			item, ok := m.selectedItem()
			m.editingCode = false
			m.codeInput.Blur()
			if !ok {
				return m, nil
			}
			m.scanning = true
			m.setStatus(statusInfo, "Importing %s...", code)
			return m, tea.Batch(m.spinner.Tick, resolveItemCmd(m.ctx, m.inbox, item.WithCode(code)))
		}
	}

	var cmd tea.Cmd
	m.codeInput, cmd = m.codeInput.Update(msg)
	return m, cmd
}

func (m Model) selectedItem() (reconcile.Item, bool) {
	index := m.inboxTable.Cursor()
	if index < 0 || index >= len(m.items) {
		return reconcile.Item{}, false
	}
	return m.items[index], true
}

func (m *Model) refreshItems() {
	m.items = m.inbox.Items()
	m.result = m.inbox.Result()
	m.inboxTable.SetRows(inboxTableRows(m.items))
	if m.inboxTable.Cursor() >= len(m.items) {
		m.inboxTable.SetCursor(max(len(m.items)-1, 0))
	}
}

func (m Model) handleInboxScanned(msg inboxScannedMsg) (tea.Model, tea.Cmd) {
	m.scanning = false
	m.scanned = true
	if msg.err != nil {
		m.logger.Error("scan pr inbox", "error", msg.err)
		m.setStatus(statusError, "Error: %v", msg.err)
		return m, nil
	}
	m.refreshItems()
	m.setScanStatus()
	return m, nil
}

func (m Model) handleItemResolved(msg itemResolvedMsg) (tea.Model, tea.Cmd) {
	m.scanning = false
	if msg.err != nil {
		m.logger.Error("resolve pr inbox item", "error", msg.err)
		m.setStatus(statusError, "Error: %v", msg.err)
		return m, nil
	}
	m.refreshItems()

	item := msg.outcome.Item
	switch {
	case item.Kind == reconcile.KindImport && msg.outcome.AlreadyExisted:
		m.setStatus(statusWarn, "%s already existed; attached PR #%d", item.TaskCode, item.PR.Number)
	case item.Kind == reconcile.KindImport:
		m.setStatus(statusOK, "Imported %s and attached PR #%d", item.TaskCode, item.PR.Number)
	case msg.outcome.AlreadyLinked:
		m.setStatus(statusWarn, "PR #%d was already attached to %s", item.PR.Number, item.TaskCode)
	default:
		m.setStatus(statusOK, "Attached PR #%d to %s", item.PR.Number, item.TaskCode)
	}
	return m, nil
}

func (m *Model) setScanStatus() {
	switch m.result.Status {
	case reconcile.StatusUnavailable:
		m.setStatus(statusError, "GitHub CLI (gh) is not available. Please install and authenticate.")
	case reconcile.StatusSynced:
		m.setStatus(statusOK, "All synced: no unlinked or unimported PRs.")
	default:
		count := len(m.items)
		suffix := "s"
		if count == 1 {
			suffix = ""
		}
		m.setStatus(statusOK, "Found %d PR%s needing action", count, suffix)
	}
}

func inboxTableRows(items []reconcile.Item) []table.Row {
	result := make([]table.Row, 0, len(items))
	for _, item := range items {
		result = append(result, table.Row{
			string(item.Kind),
			item.TaskCode,
			fmt.Sprintf("#%d", item.PR.Number),
			truncate(item.PR.Branch, 28),
			truncate(item.PR.Title, 40),
		})
	}
	return result
}

func (m Model) viewInbox() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("PR Inbox"))
	b.WriteString("\n")

	switch {
	case m.scanning:
		b.WriteString(m.spinner.View() + " Talking to GitHub...")
	case !m.scanned:
		b.WriteString(dimStyle.Render("Press r to scan."))
	case len(m.items) == 0:
		b.WriteString(dimStyle.Render("No unlinked PRs"))
	default:
		if m.result.Repo != "" {
			b.WriteString(dimStyle.Render(m.result.Repo))
			b.WriteString("\n")
		}
		b.WriteString(m.inboxTable.View())
	}
	b.WriteString("\n")

	if m.editingCode {
		b.WriteString(m.codeInput.View())
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("a/enter attach | e import as | i ignore | r refresh | esc back"))
	return b.String()
}
