// Package contract embeds the backend's REST contract as an OpenAPI document
// and checks requests against it.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

// Document returns the embedded OpenAPI document.
func Document() []byte {
	return document
}

var (
	// ErrUnknownPath means no path template matches the request path.
	ErrUnknownPath = errors.New("path not in contract")
	// ErrMethodNotAllowed means the path exists but not with this method.
	ErrMethodNotAllowed = errors.New("method not in contract")
	// ErrInvalidBody means the request body does not match the operation's schema.
	ErrInvalidBody = errors.New("request body does not match contract")
)

// Validator answers questions about the contract.
type Validator struct {
	doc *openapi3.T
}

// Endpoint is one operation in the contract.
type Endpoint struct {
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	OperationID string   `json:"operation_id" yaml:"operation_id"`
	Summary     string   `json:"summary" yaml:"summary"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Public      bool     `json:"public" yaml:"public"`
}

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*Validator, error) {
	return load(ctx, func(l *openapi3.Loader) (*openapi3.T, error) {
		return l.LoadFromData(document)
	})
}

// LoadFile parses and validates a document on disk, for checking a backend
// that publishes its own schema.
func LoadFile(ctx context.Context, path string) (*Validator, error) {
	return load(ctx, func(l *openapi3.Loader) (*openapi3.T, error) {
		return l.LoadFromFile(path)
	})
}

func load(ctx context.Context, fn func(*openapi3.Loader) (*openapi3.T, error)) (*Validator, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := fn(loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	return &Validator{doc: doc}, nil
}

// Check reports whether method and path name an operation in the contract.
func (v *Validator) Check(method, path string) error {
	_, _, err := v.operation(method, path)
	return err
}

// CheckBody validates a JSON request body against the operation's schema. An
// operation without a request body accepts only an empty body.
func (v *Validator) CheckBody(method, path string, body []byte) error {
	op, _, err := v.operation(method, path)
	if err != nil {
		return err
	}

	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		if op.RequestBody.Value.Required {
			return fmt.Errorf("%w: body is required", ErrInvalidBody)
		}
		return nil
	}

	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	if err := media.Schema.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

// Template returns the contract path template that matches path, e.g.
// "/api/dashboard/tasks/{id}/" for "/api/dashboard/tasks/7/".
func (v *Validator) Template(path string) (string, bool) {
	path = normalizePath(path)
	if v.doc.Paths.Value(path) != nil {
		return path, true
	}

	reqSegments := strings.Split(strings.Trim(path, "/"), "/")
	templates := v.doc.Paths.InMatchingOrder()
	for _, tmpl := range templates {
		if matchSegments(reqSegments, strings.Split(strings.Trim(tmpl, "/"), "/")) {
			return tmpl, true
		}
	}
	return "", false
}

// Endpoints lists every operation, sorted by path then method.
func (v *Validator) Endpoints() []Endpoint {
	var out []Endpoint
	for path, item := range v.doc.Paths.Map() {
		for method, op := range item.Operations() {
			out = append(out, Endpoint{
				Method:      method,
				Path:        path,
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Tags:        op.Tags,
				Public:      op.Security != nil && len(*op.Security) == 0,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return methodRank(out[i].Method) < methodRank(out[j].Method)
	})
	return out
}

// EndpointSummary maps each path to its methods.
func (v *Validator) EndpointSummary() map[string][]string {
	summary := make(map[string][]string)
	for _, ep := range v.Endpoints() {
		summary[ep.Path] = append(summary[ep.Path], ep.Method)
	}
	return summary
}

func (v *Validator) operation(method, path string) (*openapi3.Operation, string, error) {
	tmpl, ok := v.Template(path)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}

	op := v.doc.Paths.Value(tmpl).GetOperation(strings.ToUpper(method))
	if op == nil {
		return nil, tmpl, fmt.Errorf("%w: %s %s", ErrMethodNotAllowed, strings.ToUpper(method), tmpl)
	}
	return op, tmpl, nil
}

func matchSegments(req, tmpl []string) bool {
	if len(req) != len(tmpl) {
		return false
	}
	for i := range req {
		if strings.HasPrefix(tmpl[i], "{") && strings.HasSuffix(tmpl[i], "}") {
			if req[i] == "" {
				return false
			}
			continue
		}
		if req[i] != tmpl[i] {
			return false
		}
	}
	return true
}

func normalizePath(path string) string {
	if idx := strings.IndexAny(path, "?#"); idx != -1 {
		path = path[:idx]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func methodRank(method string) int {
	order := []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete,
	}
	for i, m := range order {
		if m == method {
			return i
		}
	}
	return len(order)
}
