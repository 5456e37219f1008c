package health

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/contract"
	"github.com/felixgeelhaar/studyplan/internal/session"
	"github.com/felixgeelhaar/studyplan/internal/storage"
)

// Requester issues a request against the backend.
type Requester interface {
	Get(ctx context.Context, path string) (*api.Response, error)
	BaseURL() string
}

// BackendChecker verifies the backend answers HTTP. Any response counts as
// reachable, including 401 for an anonymous probe; a 5xx degrades.
type BackendChecker struct {
	client Requester
	path   string
}

// NewBackendChecker probes the identity endpoint through client. The client
// should carry no credential so the probe cannot end a session.
func NewBackendChecker(client Requester) *BackendChecker {
	return &BackendChecker{client: client, path: api.PathUser}
}

// Name returns "backend".
func (c *BackendChecker) Name() string {
	return "backend"
}

// Check implements Checker.
func (c *BackendChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	resp, err := c.client.Get(ctx, c.path)
	latency := time.Since(start)

	if err == nil {
		return Healthy("reachable").
			WithDetail("url", c.client.BaseURL()).
			WithDetail("status", resp.Status).
			WithLatency(latency)
	}

	var reqErr *api.RequestError
	if !stderrors.As(err, &reqErr) {
		return Unhealthy(err.Error()).WithDetail("url", c.client.BaseURL()).WithLatency(latency)
	}
	switch reqErr.Kind {
	case api.KindNetwork:
		return Unhealthy("unreachable: " + reqErr.Err.Error()).
			WithDetail("url", c.client.BaseURL()).
			WithLatency(latency)
	case api.KindServer:
		return Degraded("reachable but failing (HTTP " + strconv.Itoa(reqErr.Status) + ")").
			WithDetail("url", c.client.BaseURL()).
			WithDetail("status", reqErr.Status).
			WithLatency(latency)
	case api.KindUnexpected:
		return Degraded("unexpected answer (HTTP " + strconv.Itoa(reqErr.Status) + ")").
			WithDetail("url", c.client.BaseURL()).
			WithDetail("status", reqErr.Status).
			WithLatency(latency)
	default:
		return Healthy("reachable").
			WithDetail("url", c.client.BaseURL()).
			WithDetail("status", reqErr.Status).
			WithLatency(latency)
	}
}

// StorageChecker verifies the credential store accepts writes.
type StorageChecker struct {
	store storage.Store
}

// NewStorageChecker creates a checker for store.
func NewStorageChecker(store storage.Store) *StorageChecker {
	return &StorageChecker{store: store}
}

const probeKey = "doctor.probe"

// Name returns "credential-store".
func (c *StorageChecker) Name() string {
	return "credential-store"
}

// Check writes, reads back and removes a probe key.
func (c *StorageChecker) Check(ctx context.Context) *Result {
	value := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := c.store.Set(probeKey, value); err != nil {
		return Unhealthy("not writable: " + err.Error())
	}
	got, ok := c.store.Get(probeKey)
	if err := c.store.Remove(probeKey); err != nil {
		return Unhealthy("cannot remove entries: " + err.Error())
	}
	if !ok || got != value {
		return Unhealthy("read back a different value")
	}

	result := Healthy("writable")
	if fs, ok := c.store.(*storage.FileStore); ok {
		result.WithDetail("path", fs.Path())
	}
	return result
}

// ConfigChecker verifies the configuration file parses.
type ConfigChecker struct {
	path string
}

// NewConfigChecker creates a checker for the file at path.
func NewConfigChecker(path string) *ConfigChecker {
	return &ConfigChecker{path: path}
}

// Name returns "config".
func (c *ConfigChecker) Name() string {
	return "config"
}

// Check implements Checker. A missing file is healthy; defaults apply.
func (c *ConfigChecker) Check(ctx context.Context) *Result {
	file, err := config.LoadFile(c.path)
	if err != nil {
		return Unhealthy(err.Error()).WithDetail("path", c.path)
	}
	if file.API.URL != "" {
		if err := config.ValidateURL(file.API.URL); err != nil {
			return Unhealthy(err.Error()).WithDetail("path", c.path)
		}
	}
	return Healthy("valid").WithDetail("path", c.path)
}

// ContractChecker verifies an API contract loads.
type ContractChecker struct {
	load func(ctx context.Context) (*contract.Validator, error)
}

// NewContractChecker checks the bundled contract, or the file at path when
// path is set.
func NewContractChecker(path string) *ContractChecker {
	if path == "" {
		return &ContractChecker{load: contract.Load}
	}
	return &ContractChecker{load: func(ctx context.Context) (*contract.Validator, error) {
		return contract.LoadFile(ctx, path)
	}}
}

// Name returns "contract".
func (c *ContractChecker) Name() string {
	return "contract"
}

// Check implements Checker.
func (c *ContractChecker) Check(ctx context.Context) *Result {
	v, err := c.load(ctx)
	if err != nil {
		return Unhealthy(err.Error())
	}
	n := len(v.Endpoints())
	return Healthy(fmt.Sprintf("%d endpoints", n)).WithDetail("endpoints", n)
}

// Session is the part of the session store the session check drives.
type Session interface {
	Boot(ctx context.Context) error
	Snapshot() session.Snapshot
}

// SessionChecker validates the stored credential against the backend.
type SessionChecker struct {
	session Session
}

// NewSessionChecker creates a checker for s.
func NewSessionChecker(s Session) *SessionChecker {
	return &SessionChecker{session: s}
}

// Name returns "session".
func (c *SessionChecker) Name() string {
	return "session"
}

// Check boots the session. Signed out degrades; an unverifiable credential
// is unhealthy.
func (c *SessionChecker) Check(ctx context.Context) *Result {
	err := c.session.Boot(ctx)
	snap := c.session.Snapshot()
	switch {
	case snap.Authenticated():
		return Healthy("signed in as " + snap.User.DisplayName())
	case snap.Unverified:
		msg := "credential could not be verified"
		if err != nil {
			msg += ": " + err.Error()
		}
		return Unhealthy(msg)
	default:
		return Degraded("signed out")
	}
}
