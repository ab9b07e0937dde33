package ports

// Package ports defines interfaces (hexagonal ports) for the session
// lifecycle. Implementations live in internal/adapters; orchestration in
// internal/service.

import (
	"context"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
)

// EventType identifies provider-emitted notifications the controller
// subscribes to.
type EventType string

const (
	EventLoginSuccess  EventType = "login_success"
	EventTokenAcquired EventType = "token_acquired"
)

// Event carries a provider notification and the account it concerns.
type Event struct {
	Type    EventType
	Account *domainauth.Account
}

// EventHandler consumes provider events.
type EventHandler func(Event)

// LoginRequest carries inputs for an interactive login.
type LoginRequest struct {
	Scopes []string
	Prompt string
}

// LogoutRequest carries inputs for a provider-side logout.
type LogoutRequest struct {
	Account               *domainauth.Account
	PostLogoutRedirectURI string
}

// TokenRequest carries inputs for a silent token acquisition.
type TokenRequest struct {
	Account *domainauth.Account
	Scopes  []string
}

// Token is the result of a token acquisition.
type Token struct {
	AccessToken string
	ExpiresAt   int64
}

// IdentityClient is the capability interface over a vendor identity
// library. The controller never constructs or mutates accounts itself;
// it only coordinates calls against this interface.
//
// ResolveRedirectCallback consumes one-time redirect state and must be
// called before any account query; a nil account with nil error means no
// callback was pending. LoginRedirect returning a nil account means the
// interaction continues out-of-band and completes on a later
// ResolveRedirectCallback.
type IdentityClient interface {
	ResolveRedirectCallback(ctx context.Context) (*domainauth.Account, error)
	Accounts(ctx context.Context) ([]domainauth.Account, error)
	SetActiveAccount(ctx context.Context, a *domainauth.Account) error
	AcquireTokenSilent(ctx context.Context, req TokenRequest) (Token, error)
	LoginPopup(ctx context.Context, req LoginRequest) (*domainauth.Account, error)
	LoginRedirect(ctx context.Context, req LoginRequest) (*domainauth.Account, error)
	LogoutPopup(ctx context.Context, req LogoutRequest) error
	LogoutRedirect(ctx context.Context, req LogoutRequest) error

	// Subscribe registers a handler for login/token events and returns an
	// unsubscribe function.
	Subscribe(h EventHandler) (unsubscribe func())
}

// PersistencePolicy selects how the identity client persists its account
// and token cache.
type PersistencePolicy struct {
	// Volatile requests session-scoped storage instead of durable storage.
	Volatile bool
	// CookieFallback requests a cookie-backed fallback for platforms
	// subject to aggressive storage partitioning.
	CookieFallback bool
}

// ClientFactory constructs the identity client with a persistence policy.
// Construction failure degrades the controller to anonymous, it never
// crashes the process.
type ClientFactory interface {
	NewClient(ctx context.Context, policy PersistencePolicy) (IdentityClient, error)
}

// ClientFactoryFunc adapts a function to the ClientFactory interface.
type ClientFactoryFunc func(ctx context.Context, policy PersistencePolicy) (IdentityClient, error)

// NewClient implements ClientFactory.
func (f ClientFactoryFunc) NewClient(ctx context.Context, policy PersistencePolicy) (IdentityClient, error) {
	return f(ctx, policy)
}

// PlatformPolicy answers platform-dependent flow choices so they are
// testable without real browsers.
type PlatformPolicy interface {
	// PreferRedirect reports whether interactive flows must use full-page
	// redirect (popups are unreliable on mobile-class agents).
	PreferRedirect() bool
	// VolatilePersistence reports whether the client cache should be
	// session-scoped with a cookie fallback.
	VolatilePersistence() bool
}

// Notifier is the user-facing notification surface. Both calls are
// fire-and-forget; implementations must not block the caller on delivery.
type Notifier interface {
	ShowSuccess(ctx context.Context, message string)
	ShowError(ctx context.Context, message string)
}
