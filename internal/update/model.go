package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/todod/internal/scheduler"
	"github.com/sandeepkv93/todod/internal/settings"
	"github.com/sandeepkv93/todod/internal/store"
	"go.uber.org/zap"
)

type View string

const (
	ViewList      View = "List"
	ViewDashboard View = "Dashboard"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Switch  string
	Palette string
	Add     string
	Help    string
	Quit    string
}

// Deps are the collaborators the TUI drives. Store is required.
type Deps struct {
	Store          *store.Store
	Scheduler      *scheduler.Engine
	Settings       settings.Provider
	Notifier       DesktopNotifier
	DesktopEnabled bool
	Density        settings.Density
	Now            func() time.Time
	Timeout        time.Duration
	Logger         *zap.Logger
}

type Model struct {
	CurrentView    View
	SelectedTaskID string
	ShowDetail     bool
	Palette        CommandPaletteState
	HelpVisible    bool
	Notifications  []Notification
	DesktopEnabled bool
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error
	Density        settings.Density

	store     *store.Store
	scheduler *scheduler.Engine
	settings  settings.Provider
	notifier  DesktopNotifier
	// outbox holds desktop notifications until Update hands them to a Cmd.
	outbox  []Notification
	now     func() time.Time
	timeout time.Duration
	logger  *zap.Logger

	visibleIDs []string
	width      int

	taskList     list.Model
	commandInput textinput.Model
	doneProgress progress.Model
	loadSpinner  spinner.Model
	helpModel    help.Model
	detailView   viewport.Model
	busy         int
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type listItem struct {
	id          string
	title       string
	description string
}

func (i listItem) FilterValue() string { return i.title + " " + i.description }
func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// LoadedMsg reports the end of Load or Refresh.
type LoadedMsg struct {
	Err error
}

// MutationMsg reports the end of a store write started from the UI.
type MutationMsg struct {
	Message string
	Err     error
}

type ReorderMsg struct {
	Result store.ReorderResult
	Err    error
}

type SchedulerMsg struct {
	Event scheduler.Event
}

func NewModel(deps Deps) Model {
	m := Model{
		CurrentView:    ViewList,
		DesktopEnabled: deps.DesktopEnabled,
		Density:        deps.Density,
		Keys: GlobalKeyMap{
			Switch:  "tab",
			Palette: "/",
			Add:     "a",
			Help:    "?",
			Quit:    "q",
		},
		store:     deps.Store,
		scheduler: deps.Scheduler,
		settings:  deps.Settings,
		notifier:  deps.Notifier,
		now:       deps.Now,
		timeout:   deps.Timeout,
		logger:    deps.Logger,
	}
	if m.notifier == nil {
		m.notifier = NoopDesktopNotifier{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.timeout <= 0 {
		m.timeout = 10 * time.Second
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if !m.Density.IsValid() {
		m.Density = settings.DensityComfortable
	}
	m.initBubbleComponents()
	m.syncFromStore()
	return m
}

func (m Model) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *Model) initBubbleComponents() {
	m.taskList = list.New([]list.Item{}, m.delegate(), 56, 16)
	m.taskList.Title = "Todos"
	m.taskList.SetShowHelp(false)
	m.taskList.SetShowTitle(false)
	m.taskList.SetShowStatusBar(false)
	m.taskList.SetFilteringEnabled(false)

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.doneProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	m.loadSpinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.helpModel = help.New()
	m.detailView = viewport.New(54, 12)
}

func (m Model) delegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	if m.Density == settings.DensityCompact {
		d.ShowDescription = false
		d.SetSpacing(0)
	}
	return d
}

func (m *Model) cycleDensity() {
	if m.Density == settings.DensityCompact {
		m.Density = settings.DensityComfortable
	} else {
		m.Density = settings.DensityCompact
	}
	m.taskList.SetDelegate(m.delegate())
	m.Status = StatusBar{Text: fmt.Sprintf("density: %s", m.Density)}
}
