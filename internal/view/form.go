package view

import (
	"context"
	"strings"
	"sync"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// Form is the state of a collapsible text form: the composer, a post's
// comment form or a comment's reply form. The zero value is a closed,
// empty form.
type Form struct {
	mu    sync.Mutex
	open  bool
	draft string
}

// Toggle opens a closed form and closes an open one. The draft is kept.
func (f *Form) Toggle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = !f.open
}

// Close collapses the form without clearing the draft.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
}

// IsOpen reports whether the form is expanded.
func (f *Form) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// SetDraft replaces the draft text.
func (f *Form) SetDraft(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = s
}

// Draft returns the current draft text.
func (f *Form) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Submit sends the draft through fn. A whitespace-only draft returns
// domain.ErrEmptyContent and fn is not called. On success the draft is
// cleared and the form collapses; on failure both are left as they were.
func (f *Form) Submit(ctx context.Context, fn func(ctx context.Context, content string) error) error {
	draft := f.Draft()
	if strings.TrimSpace(draft) == "" {
		return domain.ErrEmptyContent
	}

	if err := fn(ctx, draft); err != nil {
		return err
	}

	f.mu.Lock()
	f.draft = ""
	f.open = false
	f.mu.Unlock()
	return nil
}
