package auth

// Package auth contains domain-level types for accounts and session state.
// It is pure and free of framework/adapter concerns.

import "time"

// Account represents the authenticated principal as reported by the
// identity provider. The controller treats it as opaque and read-only;
// adapters map provider-specific claims into this shape.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	TenantID    string `json:"tenant_id"`
}

// PendingInteraction tracks which interactive flow, if any, is in flight.
type PendingInteraction string

const (
	PendingNone   PendingInteraction = "none"
	PendingLogin  PendingInteraction = "login"
	PendingLogout PendingInteraction = "logout"
)

// State identifies where the controller is in its per-process lifecycle.
type State string

const (
	StateUninitialized     State = "uninitialized"
	StateResolvingRedirect State = "resolving_redirect"
	StateCheckingStore     State = "checking_store"
	StateActive            State = "active"
	StateAnonymous         State = "anonymous"
	StateReauthPending     State = "reauth_pending"
)

// Session is the controller-owned record of the current authentication
// state. Mutated only by the session controller; readers must treat a
// returned copy as a snapshot valid until the next controller update.
type Session struct {
	Account     *Account
	Initialized bool
	Pending     PendingInteraction
	State       State
}

// Settled is the authoritative signal the controller exposes once a
// decisive authenticated-or-anonymous state has been reached.
type Settled struct {
	Account     *Account
	Initialized bool
}

// Authenticated reports whether the settled state carries an active account.
func (s Settled) Authenticated() bool { return s.Account != nil }

// StoredSession is the server-side record persisted for an authenticated
// browser session. ID is an opaque random identifier.
type StoredSession struct {
	ID        string    `json:"id"`
	Account   Account   `json:"account"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the stored session is past its expiry.
func (s StoredSession) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }
