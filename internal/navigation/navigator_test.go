package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAuthPage(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/login", true},
		{"/register", true},
		{"/login?next=/dashboard", true},
		{"/dashboard", false},
		{"/", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthPage(tt.path))
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"dashboard", "/dashboard"},
		{"/dashboard/", "/dashboard"},
		{"/dashboard/tasks?status=TODO", "/dashboard/tasks"},
		{"//", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestNavigator_NavigateAndBack(t *testing.T) {
	n := New("/")

	n.Navigate("/dashboard", State{})
	n.Navigate("/dashboard/tasks", State{})
	assert.Equal(t, "/dashboard/tasks", n.Location())
	assert.Equal(t, []string{"/", "/dashboard"}, n.History())

	assert.True(t, n.Back())
	assert.Equal(t, "/dashboard", n.Location())
	assert.True(t, n.Back())
	assert.False(t, n.Back())
	assert.Equal(t, "/", n.Location())
}

func TestNavigator_ReplaceKeepsHistory(t *testing.T) {
	n := New("/")
	n.Navigate("/dashboard/tasks", State{})
	n.Replace("/login", State{From: "/dashboard/tasks"})

	cur := n.Current()
	assert.Equal(t, "/login", cur.Path)
	assert.Equal(t, "/dashboard/tasks", cur.State.From)
	assert.False(t, cur.Full)
	assert.Equal(t, []string{"/"}, n.History())
}

func TestNavigator_ForceNavigateResets(t *testing.T) {
	n := New("/")
	n.Navigate("/dashboard", State{From: "x"})
	n.ForceNavigate("/login")

	cur := n.Current()
	assert.Equal(t, "/login", cur.Path)
	assert.True(t, cur.Full)
	assert.Empty(t, cur.State.From)
	assert.Empty(t, n.History())
}

func TestNavigator_Subscribe(t *testing.T) {
	n := New("/")

	var seen []string
	unsubscribe := n.Subscribe(func(loc Location) {
		seen = append(seen, loc.Path)
	})

	n.Navigate("/dashboard", State{})
	n.ForceNavigate("/login")
	unsubscribe()
	n.Navigate("/register", State{})

	assert.Equal(t, []string{"/dashboard", "/login"}, seen)
}
