// Package planner implements the dashboard's feature views: semesters,
// courses, tasks and the overview. Each view loads and mutates its own
// collection through the API client and exposes a page-level error message.
package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/log"
)

// ErrClosed is returned when a result arrives after the view was closed. The
// result is discarded.
var ErrClosed = errors.New("view closed")

// ErrNotLoaded is returned for an item the view has not loaded.
var ErrNotLoaded = errors.New("item not loaded")

// Option configures a view.
type Option func(*view)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(v *view) { v.logger = l }
}

// view is the lifecycle shared by every feature view. Results are applied only
// while the view is open.
type view struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger

	mu      sync.RWMutex
	loading bool
	errMsg  string
}

func (v *view) init(parent context.Context, name string, opts []Option) {
	if parent == nil {
		parent = context.Background()
	}
	v.ctx, v.cancel = context.WithCancel(parent)
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = log.Discard()
	}
	v.logger = v.logger.With("view", name)
}

// Close cancels in-flight requests. Later results are dropped.
func (v *view) Close() {
	v.cancel()
}

// Closed reports whether Close was called.
func (v *view) Closed() bool {
	return v.ctx.Err() != nil
}

// Loading reports whether a load is in flight.
func (v *view) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// Err returns the page-level error message, or "".
func (v *view) Err() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.errMsg
}

// bind derives a request context that ends with either ctx or the view.
func (v *view) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// apply runs fn under the view lock unless the view was closed.
func (v *view) apply(fn func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ctx.Err() != nil {
		v.logger.Debug("discarding result for closed view")
		return ErrClosed
	}
	fn()
	return nil
}

// load wraps a fetch with the loading flag and the page-level message.
func (v *view) load(ctx context.Context, failure string, fetch func(context.Context) (func(), error)) error {
	if err := v.apply(func() { v.loading = true }); err != nil {
		return err
	}

	ctx, done := v.bind(ctx)
	defer done()

	commit, err := fetch(ctx)
	if err != nil {
		v.logger.WithError(err).Warn(failure)
		if applyErr := v.apply(func() {
			v.loading = false
			v.errMsg = failure
		}); applyErr != nil {
			return applyErr
		}
		return err
	}

	return v.apply(func() {
		v.loading = false
		v.errMsg = ""
		commit()
	})
}

// mutate runs a mutation. Failures are logged and returned; they never
// replace the page-level message.
func (v *view) mutate(ctx context.Context, what string, fn func(context.Context) (func(), error)) error {
	if v.Closed() {
		return ErrClosed
	}

	ctx, done := v.bind(ctx)
	defer done()

	commit, err := fn(ctx)
	if err != nil {
		v.logger.WithError(err).Warn(what+" failed", "kind", api.KindOf(err).String())
		return err
	}
	if commit == nil {
		return nil
	}
	return v.apply(commit)
}
