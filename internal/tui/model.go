// Package tui is the interactive dashboard: the sign-in pages and the four
// planner pages behind the route guard, rendered with Bubble Tea.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/planner"
	"github.com/felixgeelhaar/studyplan/internal/router"
	"github.com/felixgeelhaar/studyplan/internal/session"
)

// Status line messages.
const (
	msgSessionExpired = "Your session has expired. Please sign in again."
	msgSignedOut      = "Signed out."
	msgActionFailed   = "Something went wrong"
	msgUnverified     = "Could not verify your session: "
)

// Session is the part of the session store the dashboard drives.
type Session interface {
	Snapshot() session.Snapshot
	Boot(ctx context.Context) error
	Revalidate(ctx context.Context) error
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) error
	Logout(ctx context.Context)
}

// Client serves every planner page.
type Client interface {
	planner.SemesterClient
	planner.CourseClient
	planner.TaskClient
	planner.OverviewClient
}

// Options wires the dashboard.
type Options struct {
	Session Session
	Router  *router.Router
	Client  Client
	Logger  *log.Logger
	NoColor bool
}

type confirmation struct {
	id     int
	prompt string
}

// Model is the dashboard state.
type Model struct {
	ctx  context.Context
	opts Options

	route   router.Resolution
	booted  bool
	pending tea.Cmd

	spinner spinner.Model
	form    authForm
	table   table.Model
	rowIDs  []int
	loaded  bool
	confirm *confirmation

	overview  *planner.Overview
	semesters *planner.Semesters
	courses   *planner.Courses
	tasks     *planner.Tasks

	status     string
	statusErr  bool
	loggingOut bool

	width    int
	height   int
	quitting bool

	styles Styles
}

// New creates the dashboard at the navigator's current location. Requests
// made by the dashboard are bound to ctx.
func New(ctx context.Context, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	styles := DefaultStyles()
	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("241")).
		BorderBottom(true).
		Bold(true)
	tableStyles.Selected = tableStyles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63")).
		Bold(false)
	if opts.NoColor {
		styles = PlainStyles()
		tableStyles.Selected = lipgloss.NewStyle().Reverse(true)
	}

	m := Model{
		ctx:     ctx,
		opts:    opts,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		table: table.New(
			table.WithFocused(true),
			table.WithHeight(10),
			table.WithStyles(tableStyles),
		),
		styles: styles,
	}
	m.pending = m.enter(opts.Router.Settle())
	return m
}

// Init starts the spinner and validates the persisted credential.
func (m Model) Init() tea.Cmd {
	sess, ctx := m.opts.Session, m.ctx
	boot := func() tea.Msg {
		return bootedMsg{err: sess.Boot(ctx)}
	}
	return tea.Batch(m.spinner.Tick, boot, m.pending)
}

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-12, 5))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootedMsg:
		m.booted = true
		m.setStatus("", false)
		if msg.err != nil {
			m.setStatus(msgUnverified+api.FormMessage(msg.err, msgActionFailed), true)
		}
		return m, m.settle()

	case SessionMsg, LocationMsg:
		return m, m.settle()

	case authDoneMsg:
		m.form.submitting = false
		if msg.err != nil {
			m.form.err = api.FormMessage(msg.err, m.form.fallback())
			return m, nil
		}
		m.status = ""
		return m, m.enter(m.opts.Router.CompleteLogin())

	case loggedOutMsg:
		cmd := m.settle()
		m.loggingOut = false
		m.setStatus(msgSignedOut, false)
		return m, cmd

	case loadedMsg:
		if msg.page != m.active() {
			return m, nil
		}
		m.loaded = true
		m.refreshTable()
		return m, nil

	case mutatedMsg:
		if msg.page != m.active() {
			return m, nil
		}
		switch {
		case errors.Is(msg.err, planner.ErrClosed):
		case msg.err != nil:
			m.opts.Logger.WithError(msg.err).Warn("dashboard action failed")
			m.setStatus(api.FormMessage(msg.err, msgActionFailed), true)
		default:
			m.setStatus(msg.note, false)
		}
		m.refreshTable()
		return m, nil
	}

	if m.form.inputs != nil {
		return m, m.form.update(msg)
	}
	return m, nil
}

// settle re-resolves the location after the session or navigator changed.
func (m *Model) settle() tea.Cmd {
	res := m.opts.Router.Settle()
	wasShown := m.route.Route.Guarded && m.route.Decision.Kind == router.DecisionRender
	if wasShown && res.Route.Page == router.PageLogin && !m.loggingOut {
		m.setStatus(msgSessionExpired, true)
	}
	return m.enter(res)
}

// enter switches to res, opening the page it renders.
func (m *Model) enter(res router.Resolution) tea.Cmd {
	if res.Route.Page == m.route.Route.Page && res.Decision.Kind == m.route.Decision.Kind {
		m.route = res
		return nil
	}

	m.closePage()
	m.form = authForm{}
	m.route = res
	if res.Decision.Kind != router.DecisionRender {
		return nil
	}

	switch res.Route.Page {
	case router.PageLogin:
		m.form = newAuthForm(false)
		return m.form.focus(0)
	case router.PageRegister:
		m.form = newAuthForm(true)
		return m.form.focus(0)
	default:
		return m.openPage(res.Route.Page)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.route.Decision.Kind != router.DecisionRender {
		return m, nil
	}

	switch m.route.Route.Page {
	case router.PageHome:
		return m.handleHomeKey(msg)
	case router.PageLogin, router.PageRegister:
		return m.handleFormKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.closePage()
	m.quitting = true
	return m, tea.Quit
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "l":
		return m, m.enter(m.opts.Router.Go(navigation.PathLogin))
	case "r":
		return m, m.enter(m.opts.Router.Go(navigation.PathRegister))
	case "q":
		return m.quit()
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.submitting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, m.enter(m.opts.Router.Go(navigation.PathHome))
	case "ctrl+r":
		if m.opts.Session.Snapshot().Unverified {
			return m.revalidate()
		}
		return m, nil
	case "tab", "down":
		return m, m.form.focus(m.form.focused + 1)
	case "shift+tab", "up":
		return m, m.form.focus(m.form.focused - 1)
	case "enter":
		if !m.form.last() {
			return m, m.form.focus(m.form.focused + 1)
		}
		return m.submit()
	}
	return m, m.form.update(msg)
}

// revalidate checks the kept credential again. The guard shows the
// interstitial until it finishes.
func (m Model) revalidate() (tea.Model, tea.Cmd) {
	sess, ctx := m.opts.Session, m.ctx
	m.setStatus("", false)
	return m, func() tea.Msg {
		return bootedMsg{err: sess.Revalidate(ctx)}
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if reason := m.form.validate(); reason != "" {
		m.form.err = reason
		return m, nil
	}

	m.form.err = ""
	m.form.submitting = true

	sess, ctx := m.opts.Session, m.ctx
	email, password := m.form.email(), m.form.password()
	auth := sess.Login
	if m.form.register {
		auth = sess.Register
	}
	return m, func() tea.Msg {
		return authDoneMsg{err: auth(ctx, email, password)}
	}
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			id := m.confirm.id
			m.confirm = nil
			return m, m.deleteSelected(id)
		case "n", "N", "esc":
			m.confirm = nil
		}
		return m, nil
	}

	routes := router.DashboardRoutes()
	key := msg.String()

	switch key {
	case "q":
		return m.quit()
	case "tab", "shift+tab":
		step := 1
		if key == "shift+tab" {
			step = len(routes) - 1
		}
		for i, r := range routes {
			if r.Page == m.route.Route.Page {
				return m, m.enter(m.opts.Router.Go(routes[(i+step)%len(routes)].Path))
			}
		}
		return m, nil
	case "1", "2", "3", "4":
		i := int(key[0] - '1')
		if i < len(routes) {
			return m, m.enter(m.opts.Router.Go(routes[i].Path))
		}
		return m, nil
	case "r":
		m.status = ""
		return m, m.load()
	case "L":
		m.loggingOut = true
		sess, ctx := m.opts.Session, m.ctx
		return m, func() tea.Msg {
			sess.Logout(ctx)
			return loggedOutMsg{}
		}
	case "d":
		if id, ok := m.selected(); ok {
			if prompt := m.deletePrompt(id); prompt != "" {
				m.confirm = &confirmation{id: id, prompt: prompt}
			}
		}
		return m, nil
	}

	if cmd, ok := m.handlePageKey(key); ok {
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// handlePageKey handles the keys specific to one page.
func (m *Model) handlePageKey(key string) (tea.Cmd, bool) {
	switch {
	case m.semesters != nil && key == "c":
		id, ok := m.selected()
		if !ok {
			return nil, true
		}
		s := m.semesters
		return m.mutate("Current semester updated.", func(ctx context.Context) error {
			return s.SetCurrent(ctx, id)
		}), true

	case m.courses != nil && key == "s":
		ids := []int{0}
		for _, s := range m.courses.Semesters() {
			ids = append(ids, s.ID)
		}
		m.courses.SelectSemester(next(ids, m.courses.Semester()))
		m.refreshTable()
		return nil, true

	case m.tasks != nil && (key == "n" || key == " "):
		id, ok := m.selected()
		if !ok {
			return nil, true
		}
		t := m.tasks
		return m.mutate("Task status updated.", func(ctx context.Context) error {
			return t.Advance(ctx, id)
		}), true

	case m.tasks != nil && key == "f":
		f := m.tasks.Filter()
		f.Status = next(statusCycle, f.Status)
		m.tasks.SetFilter(f)
		m.refreshTable()
		return nil, true

	case m.tasks != nil && key == "p":
		f := m.tasks.Filter()
		f.Priority = next(priorityCycle, f.Priority)
		m.tasks.SetFilter(f)
		m.refreshTable()
		return nil, true
	}
	return nil, false
}
