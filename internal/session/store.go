// Package session holds the signed-in user and the persisted credentials,
// and implements the login, registration, logout and startup-restore flows.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blackmichael/karma-feed/internal/api"
	"github.com/blackmichael/karma-feed/internal/domain"
)

// State is the lifecycle position of a Store.
type State int

const (
	// Uninitialized is the state before Init has run.
	Uninitialized State = iota
	// Loading means a persisted credential exists and the user is being
	// fetched.
	Loading
	// Authenticated means a user identity is held.
	Authenticated
	// Anonymous means no user is signed in.
	Anonymous
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Backend is the part of the API client used by the session.
type Backend interface {
	Login(ctx context.Context, username, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, in api.RegisterRequest) (*api.AuthResponse, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
	OnUnauthorized(fn func())
}

// AuthError is returned when the backend rejects a login or registration.
// Login failures carry Message; registration failures carry Fields.
type AuthError struct {
	Message string
	Fields  domain.FieldErrors
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		return e.Fields.Error()
	}
	return "authentication failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Store is the single source of truth for who is signed in. Create one per
// process and pass it to every component that needs it.
type Store struct {
	backend Backend
	creds   domain.CredentialStore
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	user      *domain.User
	listeners []func()
}

// New creates a Store and registers it with the backend's unauthorized
// hook, so that a 401 from any call signs the user out.
func New(backend Backend, creds domain.CredentialStore, logger *slog.Logger) *Store {
	s := &Store{
		backend: backend,
		creds:   creds,
		logger:  logger,
		state:   Uninitialized,
	}
	backend.OnUnauthorized(s.expire)
	return s
}

// Init restores a persisted session. Without a stored access credential the
// store becomes Anonymous immediately; otherwise it moves to Loading and
// fetches the current user.
func (s *Store) Init(ctx context.Context) error {
	creds, err := s.creds.Load(ctx)
	if err != nil {
		s.setAnonymous()
		return fmt.Errorf("load credentials: %w", err)
	}

	if creds.Empty() {
		s.setAnonymous()
		return nil
	}

	s.mu.Lock()
	s.state = Loading
	s.mu.Unlock()

	// A failed restore demotes to Anonymous; it is not an Init error.
	_ = s.LoadCurrentUser(ctx)
	return nil
}

// LoadCurrentUser fetches the user for the stored credential. Any failure
// performs a full logout.
func (s *Store) LoadCurrentUser(ctx context.Context) error {
	user, err := s.backend.CurrentUser(ctx)
	if err != nil {
		s.logger.Error("error loading user", "error", err)
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.logger.Error("logout after failed restore", "error", logoutErr)
		}
		return err
	}

	s.mu.Lock()
	s.user = user
	s.state = Authenticated
	s.mu.Unlock()

	s.logger.Info("session restored", "username", user.Username)
	return nil
}

// Login authenticates and persists the issued credentials. On failure the
// returned *AuthError carries a human-readable message and any prior
// session is left as it was.
func (s *Store) Login(ctx context.Context, username, password string) error {
	resp, err := s.backend.Login(ctx, username, password)
	if err != nil {
		s.logger.Error("login error", "username", username, "error", err)
		msg := "Login failed"
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.Message() != "" {
			msg = statusErr.Message()
		}
		return &AuthError{Message: msg, Err: err}
	}

	if err := s.establish(ctx, resp); err != nil {
		s.logger.Error("login error", "username", username, "error", err)
		return &AuthError{Message: "Login failed", Err: err}
	}
	return nil
}

// Register validates the form locally, then creates the account and signs
// in. Local validation failures return domain.FieldErrors without any
// network call; backend rejections return *AuthError with Fields set.
func (s *Store) Register(ctx context.Context, form RegistrationForm) error {
	if fields := form.Validate(); fields != nil {
		return fields
	}

	resp, err := s.backend.Register(ctx, form.request())
	if err != nil {
		s.logger.Error("registration error", "username", form.Username, "error", err)
		fields := domain.FieldErrors{"non_field_errors": "Registration failed"}
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) {
			if fe := statusErr.FieldErrors(); fe != nil {
				fields = fe
			}
		}
		return &AuthError{Fields: fields, Err: err}
	}

	if err := s.establish(ctx, resp); err != nil {
		s.logger.Error("registration error", "username", form.Username, "error", err)
		return &AuthError{Fields: domain.FieldErrors{"non_field_errors": "Registration failed"}, Err: err}
	}
	return nil
}

// Logout clears both persisted credentials and the in-memory user. It is
// idempotent. The in-memory state is cleared even if the store fails.
func (s *Store) Logout(ctx context.Context) error {
	err := s.creds.Clear(ctx)
	s.setAnonymous()
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a user identity is held. A stored
// credential alone does not count.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnSignedOut registers fn to run whenever a signed-in or restoring session
// becomes Anonymous, whether by Logout or by a 401 from any call. Front ends
// use it to return to their unauthenticated view.
func (s *Store) OnSignedOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) establish(ctx context.Context, resp *api.AuthResponse) error {
	creds := resp.Credentials()
	if creds.Empty() {
		return errors.New("response carried no access token")
	}
	if err := s.creds.Save(ctx, creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	user := resp.User
	s.mu.Lock()
	s.user = &user
	s.state = Authenticated
	s.mu.Unlock()

	s.logger.Info("signed in", "username", user.Username)
	return nil
}

// expire handles a 401 seen by the API client, which has already cleared
// the persisted credentials.
func (s *Store) expire() {
	s.setAnonymous()
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	was := s.state
	s.user = nil
	s.state = Anonymous
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if was != Authenticated && was != Loading {
		return
	}
	s.logger.Info("signed out", "from", was.String())
	for _, fn := range listeners {
		fn()
	}
}
