package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindNetwork: the request never reached the server.
	KindNetwork Kind = iota + 1
	// KindAuth: 401.
	KindAuth
	// KindValidation: any other 4xx. The payload is kept verbatim.
	KindValidation
	// KindServer: 5xx.
	KindServer
	// KindUnexpected: any other non-2xx status, such as an unfollowed
	// redirect.
	KindUnexpected
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	case status >= 500 && status < 600:
		return KindServer
	default:
		return KindUnexpected
	}
}

// RequestError is returned for every failed request.
type RequestError struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Payload []byte
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: request failed with status %d", e.Method, e.Path, e.Status)
	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Unwrap returns the transport error, if any.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Message extracts a human-readable message from the payload. It understands
// {"detail": "..."}, {"error": "..."}, {"error": {field: [...]}} and plain
// field-error maps. Fields are reported in sorted order.
func (e *RequestError) Message() string {
	if e.Kind == KindNetwork {
		return "network error"
	}
	if detail := e.detail(); detail != "" {
		return detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// detail is the message carried by the payload, or "" when there is none.
func (e *RequestError) detail() string {
	if msg := payloadMessage(e.Payload); msg != "" {
		return msg
	}
	if len(e.Payload) > 0 && !json.Valid(e.Payload) {
		return strings.TrimSpace(string(e.Payload))
	}
	return ""
}

func payloadMessage(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(payload, &generic); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "error", "message", "non_field_errors"} {
		raw, ok := generic[key]
		if !ok {
			continue
		}
		if msg := rawMessage(raw); msg != "" {
			return msg
		}
	}

	return fieldErrors(generic)
}

// rawMessage renders a string, a list of strings or a nested field map.
func rawMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		return fieldErrors(nested)
	}

	return ""
}

func fieldErrors(fields map[string]json.RawMessage) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if msg := rawMessage(fields[k]); msg != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", k, msg))
		}
	}
	return strings.Join(parts, "; ")
}

// KindOf returns the Kind of err, or 0 if err is not a *RequestError.
func KindOf(err error) Kind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return 0
}

// IsUnauthorized reports whether err is a 401.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindAuth
}

// FormMessage returns the message a form should display for err: the
// backend's own message for validation and auth failures, fallback otherwise.
func FormMessage(err error, fallback string) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && (reqErr.Kind == KindValidation || reqErr.Kind == KindAuth) {
		if msg := payloadMessage(reqErr.Payload); msg != "" {
			return msg
		}
	}
	return fallback
}
