package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/navigation"
	"github.com/felixgeelhaar/studyplan/internal/storage"
	"github.com/felixgeelhaar/studyplan/internal/version"
)

// Defaults for the backend connection.
const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

// Header names used by the client.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderRequestID     = "X-Request-ID"
	HeaderUserAgent     = "User-Agent"

	// TokenScheme prefixes the credential in the Authorization header.
	TokenScheme = "Token"
)

// Config holds the connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Locator reports the client's current location. The unauthorized signal is
// suppressed while the location is an authentication page.
type Locator interface {
	Location() string
}

// UnauthorizedEvent is emitted when a request completes with 401 outside the
// authentication pages.
type UnauthorizedEvent struct {
	Method    string
	Path      string
	Location  string
	RequestID string
}

// Response is a successful backend response.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Decode unmarshals the payload into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client is the single shared request-issuing object. Default headers,
// including the credential, are applied to every request.
//
// Default headers may change while requests are in flight; a request racing a
// login or logout carries either the old or the new credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	locator    Locator
	creds      storage.Getter

	mu      sync.RWMutex
	headers http.Header

	obsMu     sync.Mutex
	observers map[int]func(UnauthorizedEvent)
	nextObs   int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithLocator sets the source of the current location.
func WithLocator(l Locator) Option {
	return func(c *Client) { c.locator = l }
}

// WithCredentials sets the store the persisted credential is read from at
// construction.
func WithCredentials(g storage.Getter) Option {
	return func(c *Client) { c.creds = g }
}

// New creates a client. If a credential is already persisted it is installed
// as the default Authorization header before New returns, so a restarted
// client resumes the session before it is validated.
func New(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		headers:    make(http.Header),
		observers:  make(map[int]func(UnauthorizedEvent)),
	}
	c.headers.Set(HeaderContentType, "application/json")
	c.headers.Set(HeaderUserAgent, version.GetInfo().UserAgent())

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Discard()
	}

	if c.creds != nil {
		if token, ok := c.creds.Get(storage.KeyToken); ok && token != "" {
			c.SetToken(token)
		}
	}

	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader sets a default header.
func (c *Client) SetHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(name, value)
}

// DeleteHeader removes a default header.
func (c *Client) DeleteHeader(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del(name)
}

// Header returns a default header value.
func (c *Client) Header(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(name)
}

// SetToken installs the credential as the default Authorization header.
func (c *Client) SetToken(token string) {
	c.SetHeader(HeaderAuthorization, TokenScheme+" "+token)
}

// ClearToken removes the default Authorization header.
func (c *Client) ClearToken() {
	c.DeleteHeader(HeaderAuthorization)
}

// Token returns the credential currently installed, if any.
func (c *Client) Token() string {
	return strings.TrimPrefix(c.Header(HeaderAuthorization), TokenScheme+" ")
}

// OnUnauthorized registers fn for unauthorized events. The returned func
// unregisters it.
func (c *Client) OnUnauthorized(fn func(UnauthorizedEvent)) func() {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do performs a request. Any non-2xx status is returned as a *RequestError;
// a 401 additionally emits an UnauthorizedEvent.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	requestID := uuid.NewString()
	ctx = log.ContextWithRequestID(ctx, requestID)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	for name, values := range c.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	c.mu.RUnlock()
	req.Header.Set(HeaderRequestID, requestID)

	logger := c.logger.WithContext(ctx).With("method", method, "path", path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("request failed", "error", err, "duration", time.Since(start))
		return nil, &RequestError{Kind: KindNetwork, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Kind: KindNetwork, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	logger.Debug("request completed", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{
			Kind:    kindForStatus(resp.StatusCode),
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Payload: data,
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.emitUnauthorized(UnauthorizedEvent{Method: method, Path: path, RequestID: requestID})
		}
		return nil, reqErr
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Data: data}, nil
}

func (c *Client) emitUnauthorized(ev UnauthorizedEvent) {
	if c.locator != nil {
		ev.Location = c.locator.Location()
	}
	if navigation.IsAuthPage(ev.Location) {
		return
	}

	c.obsMu.Lock()
	observers := make([]func(UnauthorizedEvent), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.obsMu.Unlock()

	c.logger.Info("backend rejected credential", "method", ev.Method, "path", ev.Path, "location", ev.Location)
	for _, fn := range observers {
		fn(ev)
	}
}

// getJSON issues a GET and decodes the payload into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// sendJSON issues a body-carrying request and decodes the payload into out
// when out is non-nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}
