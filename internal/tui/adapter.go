package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/session"
)

// Subscriber is a session store the dashboard can follow.
type Subscriber interface {
	Session
	Subscribe(fn func(session.Snapshot)) func()
}

// Adapter bridges the session store and navigator to a running program.
type Adapter struct {
	program *tea.Program
	detach  []func()
}

// NewAdapter creates the program for the dashboard and forwards session and
// navigation changes to it.
func NewAdapter(ctx context.Context, sess Subscriber, nav *navigation.Navigator, opts Options, progOpts ...tea.ProgramOption) *Adapter {
	opts.Session = sess
	model := New(ctx, opts)

	progOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, progOpts...)
	a := &Adapter{program: tea.NewProgram(model, progOpts...)}

	a.detach = append(a.detach,
		sess.Subscribe(func(snap session.Snapshot) {
			go a.program.Send(SessionMsg{Snapshot: snap})
		}),
		// The dashboard moves the navigator from inside Update, where a
		// blocking Send would never be received.
		nav.Subscribe(func(loc navigation.Location) {
			go a.program.Send(LocationMsg{Location: loc})
		}),
	)
	return a
}

// Run blocks until the dashboard exits.
func (a *Adapter) Run() error {
	defer a.Stop()

	if _, err := a.program.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// Stop detaches the subscriptions and quits the program.
func (a *Adapter) Stop() {
	for _, fn := range a.detach {
		fn()
	}
	a.detach = nil
	a.program.Quit()
}
