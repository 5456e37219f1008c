package router

import (
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/session"
)

// Page identifies what a route renders.
type Page int

// Pages.
const (
	PageNone Page = iota
	PageHome
	PageLogin
	PageRegister
	PageOverview
	PageSemesters
	PageCourses
	PageTasks
)

// Route is an entry in the route table.
type Route struct {
	Path  string
	Page  Page
	Title string
	// Guarded routes require an identity.
	Guarded bool
	// Public routes are only useful while signed out; an authenticated
	// session is sent to the dashboard instead.
	Public bool
}

// Routes is the route table. Dashboard pages are listed in sidebar order.
var Routes = []Route{
	{Path: navigation.PathHome, Page: PageHome, Title: "Home", Public: true},
	{Path: navigation.PathLogin, Page: PageLogin, Title: "Sign in", Public: true},
	{Path: navigation.PathRegister, Page: PageRegister, Title: "Create account", Public: true},
	{Path: navigation.PathDashboard, Page: PageOverview, Title: "Overview", Guarded: true},
	{Path: navigation.PathSemesters, Page: PageSemesters, Title: "Semesters", Guarded: true},
	{Path: navigation.PathCourses, Page: PageCourses, Title: "Courses", Guarded: true},
	{Path: navigation.PathTasks, Page: PageTasks, Title: "Tasks", Guarded: true},
}

// DashboardRoutes returns the guarded routes.
func DashboardRoutes() []Route {
	var out []Route
	for _, r := range Routes {
		if r.Guarded {
			out = append(out, r)
		}
	}
	return out
}

// Lookup finds the route for path.
func Lookup(path string) (Route, bool) {
	path = navigation.Clean(path)
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Resolution is a route together with the decision taken for it.
type Resolution struct {
	Route    Route
	Decision Decision
}

// Resolve combines the route table with the guard:
//
//   - unknown paths redirect to the dashboard when signed in, home otherwise;
//   - guarded routes go through Guard;
//   - public routes redirect to the dashboard when signed in.
func Resolve(snap session.Snapshot, path string) Resolution {
	path = navigation.Clean(path)

	route, ok := Lookup(path)
	if !ok {
		to := navigation.PathHome
		if snap.Authenticated() {
			to = navigation.PathDashboard
		}
		return Resolution{Decision: Decision{Kind: DecisionRedirect, To: to}}
	}

	if route.Guarded {
		return Resolution{Route: route, Decision: Guard(snap, path)}
	}

	if route.Public && !snap.Loading && snap.Authenticated() {
		return Resolution{Route: route, Decision: Decision{Kind: DecisionRedirect, To: navigation.PathDashboard}}
	}

	return Resolution{Route: route, Decision: Decision{Kind: DecisionRender}}
}

// AfterLogin returns where to go once signed in: the remembered destination
// when it is a dashboard page, the dashboard otherwise.
func AfterLogin(from string) string {
	if from == "" {
		return navigation.PathDashboard
	}
	if route, ok := Lookup(from); ok && route.Guarded {
		return route.Path
	}
	return navigation.PathDashboard
}
