package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/studyplan/internal/router"
)

// AppTitle is the header shown on every page.
const AppTitle = "Course Assistant"

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.route.Decision.Kind != router.DecisionRender:
		b.WriteString(m.spinner.View() + " Loading...")
		b.WriteString("\n")
	case m.route.Route.Page == router.PageHome:
		b.WriteString(m.renderHome())
	case m.form.inputs != nil:
		b.WriteString(m.renderForm())
	default:
		b.WriteString(m.renderTabs())
		b.WriteString("\n\n")
		b.WriteString(m.renderPage())
	}

	if m.status != "" {
		style := m.styles.Success
		if m.statusErr {
			style = m.styles.Error
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("📚 " + AppTitle)
	snap := m.opts.Session.Snapshot()
	if !snap.Authenticated() {
		return title
	}
	return title + "  " + m.styles.Subtitle.Render("Welcome, "+snap.User.DisplayName())
}

func (m Model) renderHome() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Plan your semesters, courses and coursework in one place."))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Key.Render("l") + " sign in    " + m.styles.Key.Render("r") + " create account")
	b.WriteString("\n")
	if !m.booted {
		b.WriteString("\n" + m.spinner.View() + m.styles.Muted.Render(" Checking your session..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderForm() string {
	var b strings.Builder

	heading := "Sign in to your account"
	if m.form.register {
		heading = "Create your account"
	}
	b.WriteString(m.styles.Subtitle.Render(heading))
	b.WriteString("\n\n")

	for _, in := range m.form.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if m.form.err != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.form.err))
		b.WriteString("\n")
	}

	if m.form.submitting {
		b.WriteString("\n" + m.spinner.View())
		if m.form.register {
			b.WriteString(" Creating account...")
		} else {
			b.WriteString(" Signing in...")
		}
		b.WriteString("\n")
	}

	return m.styles.Border.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(router.Routes))
	for i, r := range router.DashboardRoutes() {
		label := fmt.Sprintf("%d %s", i+1, r.Title)
		if r.Page == m.route.Route.Page {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderPage() string {
	v := m.active()
	if v == nil {
		return ""
	}
	if !m.loaded || v.Loading() {
		return m.spinner.View() + " Loading...\n"
	}
	if msg := v.Err(); msg != "" {
		return m.styles.Error.Render(msg) + "\n" + m.styles.Muted.Render("Press r to retry.") + "\n"
	}

	var b strings.Builder
	switch {
	case m.overview != nil:
		b.WriteString(m.renderStats())
		b.WriteString("\n\n")
		b.WriteString(m.styles.Subtitle.Render("Upcoming Tasks"))
		b.WriteString("\n")
		if len(m.rowIDs) == 0 {
			b.WriteString(m.styles.Muted.Render("No upcoming tasks"))
			b.WriteString("\n")
			return b.String()
		}
	case m.courses != nil:
		label := "All semesters"
		if id := m.courses.Semester(); id != 0 {
			label = m.courses.SemesterLabel(id)
		}
		b.WriteString(m.styles.Muted.Render("Semester: ") + label)
		b.WriteString("\n\n")
	case m.tasks != nil:
		b.WriteString(m.renderTaskFilter())
		b.WriteString("\n\n")
	}

	if len(m.rowIDs) == 0 {
		b.WriteString(m.styles.Muted.Render("Nothing here yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	if m.confirm != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Border.Render(
			m.styles.Warning.Render("Confirm Action") + "\n\n" + m.confirm.prompt + "\n\n" +
				m.styles.Key.Render("y") + " delete  " + m.styles.Key.Render("n") + " cancel",
		))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStats() string {
	stats := m.overview.Stats()
	tiles := make([]string, 0, len(stats))
	for _, s := range stats {
		tiles = append(tiles, m.styles.Stat.Render(
			m.styles.Muted.Render(s.Label)+"\n"+m.styles.StatValue.Render(s.Value),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func (m Model) renderTaskFilter() string {
	f := m.tasks.Filter()
	status, priority := "all", "all"
	if f.Status != "" {
		status = string(f.Status)
	}
	if f.Priority != "" {
		priority = string(f.Priority)
	}
	return m.styles.Muted.Render("Status: ") + status + "  " + m.styles.Muted.Render("Priority: ") + priority
}

func (m Model) renderHelpLine() string {
	var items []string
	key := func(k, desc string) {
		items = append(items, m.styles.Key.Render(k)+" "+m.styles.KeyDesc.Render(desc))
	}

	switch {
	case m.route.Decision.Kind != router.DecisionRender:
		key("ctrl+c", "quit")
	case m.route.Route.Page == router.PageHome:
		key("l", "sign in")
		key("r", "register")
		key("q", "quit")
	case m.form.inputs != nil:
		key("tab", "next field")
		key("enter", "submit")
		if m.opts.Session.Snapshot().Unverified {
			key("ctrl+r", "retry session")
		}
		key("esc", "back")
	case m.confirm != nil:
		key("y", "confirm")
		key("n", "cancel")
	default:
		key("tab", "switch page")
		key("r", "reload")
		switch {
		case m.semesters != nil:
			key("c", "set current")
			key("d", "delete")
		case m.courses != nil:
			key("s", "semester")
			key("d", "delete")
		case m.tasks != nil:
			key("n", "next status")
			key("f", "status filter")
			key("p", "priority filter")
			key("d", "delete")
		}
		key("L", "log out")
		key("q", "quit")
	}

	return m.styles.Help.Render(strings.Join(items, " • "))
}
