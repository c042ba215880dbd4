package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sumanthaka/TerminalTask/internal/logging"
	"github.com/sumanthaka/TerminalTask/internal/reconcile"
	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

type TaskManager interface {
	CreateTask(ctx context.Context) (tasks.Task, error)
	GetAllTasks(ctx context.Context) ([]tasks.TaskRow, error)
	DeleteTask(ctx context.Context, code string) (bool, error)
}

type InboxService interface {
	Scan(ctx context.Context) (reconcile.Result, error)
	Resolve(ctx context.Context, item reconcile.Item) (reconcile.Outcome, error)
	Ignore(item reconcile.Item) bool
	Items() []reconcile.Item
	Result() reconcile.Result
}

type PROpener interface {
	OpenPR(ctx context.Context, repo string, number int) error
}

type Deps struct {
	Context context.Context
	Tasks   TaskManager
	Inbox   InboxService
	Opener  PROpener
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	Logger    *slog.Logger
}

type screen int

const (
	screenMenu screen = iota
	screenCreate
	screenTasks
	screenInbox
)

var menuEntries = []string{"Create Task", "Tasks", "PR Inbox", "Quit"}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	dimStyle    = lipgloss.NewStyle().Faint(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

type Model struct {
	ctx       context.Context
	tasks     TaskManager
	inbox     InboxService
	opener    PROpener
	clipboard func(string) error
	logger    *slog.Logger

	screen     screen
	menuCursor int
	width      int
	height     int

	status     string
	statusKind statusKind

	lastCreated tasks.Task
	creating    bool

	taskRows      []tasks.TaskRow
	taskTable     table.Model
	loadingTasks  bool
	confirmDelete string

	items       []reconcile.Item
	result      reconcile.Result
	inboxTable  table.Model
	scanning    bool
	scanned     bool
	spinner     spinner.Model
	editingCode bool
	codeInput   textinput.Model
}

func NewModel(deps Deps) Model {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	copyFn := deps.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return Model{
		ctx:        ctx,
		tasks:      deps.Tasks,
		inbox:      deps.Inbox,
		opener:     deps.Opener,
		clipboard:  copyFn,
		logger:     logger,
		taskTable:  newTable(taskColumns),
		inboxTable: newTable(inboxColumns),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		codeInput:  newCodeInput(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTables()
		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case taskCreatedMsg:
		return m.handleTaskCreated(msg)
	case clipboardMsg:
		return m.handleClipboard(msg)
	case tasksLoadedMsg:
		return m.handleTasksLoaded(msg)
	case taskDeletedMsg:
		return m.handleTaskDeleted(msg)
	case prOpenedMsg:
		return m.handlePROpened(msg)
	case inboxScannedMsg:
		return m.handleInboxScanned(msg)
	case itemResolvedMsg:
		return m.handleItemResolved(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	switch m.screen {
	case screenCreate:
		return m.updateCreate(msg)
	case screenTasks:
		return m.updateTasks(msg)
	case screenInbox:
		return m.updateInbox(msg)
	default:
		return m.updateMenu(msg)
	}
}

func (m Model) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.menuCursor = (m.menuCursor - 1 + len(menuEntries)) % len(menuEntries)
	case "down", "j", "tab":
		m.menuCursor = (m.menuCursor + 1) % len(menuEntries)
	case "1", "2", "3", "4":
		m.menuCursor = int(key.String()[0] - '1')
		return m.selectMenuEntry()
	case "enter":
		return m.selectMenuEntry()
	}
	return m, nil
}

func (m Model) selectMenuEntry() (tea.Model, tea.Cmd) {
	m.clearStatus()
	switch m.menuCursor {
	case 0:
		m.screen = screenCreate
		return m, nil
	case 1:
		m.screen = screenTasks
		m.confirmDelete = ""
		m.loadingTasks = true
		return m, loadTasksCmd(m.ctx, m.tasks)
	case 2:
		m.screen = screenInbox
		return m.startScan()
	default:
		return m, tea.Quit
	}
}

func (m Model) backToMenu() (tea.Model, tea.Cmd) {
	m.screen = screenMenu
	m.clearStatus()
	return m, nil
}

func (m *Model) setStatus(kind statusKind, format string, args ...any) {
	m.statusKind = kind
	m.status = fmt.Sprintf(format, args...)
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusKind = statusInfo
}

// Status returns the current one-line status message.
func (m Model) Status() string {
	return m.status
}

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenCreate:
		body = m.viewCreate()
	case screenTasks:
		body = m.viewTasks()
	case screenInbox:
		body = m.viewInbox()
	default:
		body = m.viewMenu()
	}

	var b strings.Builder
	b.WriteString(body)
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.renderStatus())
	}
	b.WriteString("\n")
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tt · task terminal"))
	b.WriteString("\n")
	for i, entry := range menuEntries {
		line := fmt.Sprintf("%d. %s", i+1, entry)
		if i == m.menuCursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("up/down move | enter select | 1-4 jump | q quit"))
	return b.String()
}

func (m Model) renderStatus() string {
	switch m.statusKind {
	case statusOK:
		return okStyle.Render(m.status)
	case statusWarn:
		return warnStyle.Render(m.status)
	case statusError:
		return errStyle.Render(m.status)
	default:
		return dimStyle.Render(m.status)
	}
}

func (m *Model) resizeTables() {
	height := m.height - 10
	if height < 3 {
		height = 3
	}
	m.taskTable.SetHeight(height)
	m.inboxTable.SetHeight(height)
	if m.width > 0 {
		m.taskTable.SetWidth(m.width - 4)
		m.inboxTable.SetWidth(m.width - 4)
	}
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)
	return t
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
