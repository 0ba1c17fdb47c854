package domain

import (
	"errors"
	"sort"
	"strings"
)

// ErrEmptyContent is returned when a post, comment or reply body is empty
// or whitespace only. It is raised before any network call.
var ErrEmptyContent = errors.New("content must not be empty")

// FieldErrors maps form field names to a human-readable message. It is used
// both for local validation and for the backend's field-level errors.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e[k]
	}
	return strings.Join(parts, "; ")
}
