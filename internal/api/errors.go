package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// ErrUnauthorized matches any StatusError carrying a 401 status.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for every non-2xx backend response. The body is
// kept verbatim so callers can decide how to present it.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d) %s %s: %s", e.Status, e.Method, e.Path, strings.TrimSpace(string(e.Body)))
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Message returns the backend's single error string ("error" or "detail"),
// or "" if the body carries none.
func (e *StatusError) Message() string {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Detail
}

// FieldErrors decodes a field-level validation body such as
// {"username": ["A user with that username already exists."]}. Values may
// be strings or lists of strings; lists are joined with a space. It returns
// nil when the body is not a JSON object.
func (e *StatusError) FieldErrors() domain.FieldErrors {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &raw); err != nil || len(raw) == 0 {
		return nil
	}

	fields := make(domain.FieldErrors, len(raw))
	for field, value := range raw {
		var msg string
		if err := json.Unmarshal(value, &msg); err == nil {
			fields[field] = msg
			continue
		}
		var msgs []string
		if err := json.Unmarshal(value, &msgs); err == nil {
			fields[field] = strings.Join(msgs, " ")
			continue
		}
		fields[field] = strings.TrimSpace(string(value))
	}
	return fields
}
