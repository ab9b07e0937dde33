package ports

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
)

// AccountStore persists the identity client's account cache in insertion
// order. The oidc adapter reads and writes it; the controller only sees
// accounts through IdentityClient.Accounts.
type AccountStore interface {
	Append(ctx context.Context, realm string, a domainauth.Account) error
	List(ctx context.Context, realm string) ([]domainauth.Account, error)
	Remove(ctx context.Context, realm, accountID string) error
	Clear(ctx context.Context, realm string) error
}

// ErrSessionNotFound is returned by SessionStore.Get for unknown or expired
// session IDs. Callers use it to tell a missing session from a store outage.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves browser sessions for the HTTP facade.
// Get returns ErrSessionNotFound when no session exists for the ID.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.StoredSession) error
	Get(ctx context.Context, id string) (domainauth.StoredSession, error)
	Delete(ctx context.Context, id string) error
}

// AuthEvent is an audit record of a session lifecycle transition.
type AuthEvent struct {
	ID         string
	Kind       string
	AccountID  string
	Username   string
	Detail     string
	OccurredAt time.Time
}

// Audit event kinds recorded by the controller.
const (
	AuthEventLoginSuccess        = "login_success"
	AuthEventLoginFallback       = "login_fallback"
	AuthEventLoginFailed         = "login_failed"
	AuthEventLoginCancelled      = "login_cancelled"
	AuthEventSilentRefreshFailed = "silent_refresh_failed"
	AuthEventReauthTriggered     = "reauth_triggered"
	AuthEventLogout              = "logout"
)

// AuthEventRecorder records audit events. Recording failures are logged by
// callers and never surfaced to users.
type AuthEventRecorder interface {
	Record(ctx context.Context, ev AuthEvent) error
}

// AuthEventRecorderFunc adapts a function to the AuthEventRecorder interface.
type AuthEventRecorderFunc func(ctx context.Context, ev AuthEvent) error

// Record implements AuthEventRecorder.
func (f AuthEventRecorderFunc) Record(ctx context.Context, ev AuthEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, ev)
}
