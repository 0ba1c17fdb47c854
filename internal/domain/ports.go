package domain

import "context"

// Credentials is the pair of bearer tokens issued at login or registration.
type Credentials struct {
	// Access authenticates individual requests.
	Access string

	// Refresh is persisted with Access but never sent by this client.
	Refresh string
}

// Empty reports whether there is no access credential.
func (c Credentials) Empty() bool {
	return c.Access == ""
}

// CredentialStore persists credentials across process restarts. Both values
// are always written and cleared together.
type CredentialStore interface {
	// Load returns the stored credentials, or empty Credentials if none are
	// saved.
	Load(ctx context.Context) (Credentials, error)

	// Save replaces both stored values.
	Save(ctx context.Context, creds Credentials) error

	// Clear removes both stored values. Clearing an empty store is not an
	// error.
	Clear(ctx context.Context) error
}
