package devidentity

// Package devidentity provides a config-driven IdentityClient for local
// development. Interactive logins complete immediately with the configured
// identity; there is no real provider round trip.

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// Config controls the dev identity client.
type Config struct {
	UserID      string
	Username    string
	DisplayName string
	TenantID    string
}

// Client implements ports.IdentityClient for local development. It keeps
// its account store in memory and emits login events like a real provider.
type Client struct {
	identity domainauth.Account

	mu       sync.Mutex
	accounts []domainauth.Account
	active   *domainauth.Account
	handlers map[int]ports.EventHandler
	nextID   int
}

var _ ports.IdentityClient = (*Client)(nil)

// NewClient constructs a dev identity client from Config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev identity: UserID is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("dev identity: Username is required")
	}
	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = cfg.Username
	}
	return &Client{
		identity: domainauth.Account{
			ID:          cfg.UserID,
			Username:    cfg.Username,
			DisplayName: displayName,
			TenantID:    cfg.TenantID,
		},
		handlers: make(map[int]ports.EventHandler),
	}, nil
}

// ResolveRedirectCallback never has pending state in dev mode.
func (c *Client) ResolveRedirectCallback(_ context.Context) (*domainauth.Account, error) {
	return nil, nil
}

// Accounts returns the in-memory account store in insertion order.
func (c *Client) Accounts(_ context.Context) ([]domainauth.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domainauth.Account(nil), c.accounts...), nil
}

// SetActiveAccount records the active account.
func (c *Client) SetActiveAccount(_ context.Context, a *domainauth.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = a
	return nil
}

// AcquireTokenSilent always succeeds in dev mode.
func (c *Client) AcquireTokenSilent(_ context.Context, req ports.TokenRequest) (ports.Token, error) {
	if req.Account == nil {
		return ports.Token{}, errors.New("dev identity: account is required")
	}
	return ports.Token{AccessToken: "dev-token"}, nil
}

// LoginPopup completes immediately with the configured identity.
func (c *Client) LoginPopup(_ context.Context, _ ports.LoginRequest) (*domainauth.Account, error) {
	return c.completeLogin(), nil
}

// LoginRedirect completes immediately with the configured identity; dev
// mode has no out-of-band round trip.
func (c *Client) LoginRedirect(_ context.Context, _ ports.LoginRequest) (*domainauth.Account, error) {
	return c.completeLogin(), nil
}

// LogoutPopup clears the in-memory store.
func (c *Client) LogoutPopup(_ context.Context, _ ports.LogoutRequest) error {
	return c.logout()
}

// LogoutRedirect clears the in-memory store.
func (c *Client) LogoutRedirect(_ context.Context, _ ports.LogoutRequest) error {
	return c.logout()
}

// Subscribe registers an event handler.
func (c *Client) Subscribe(h ports.EventHandler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

func (c *Client) completeLogin() *domainauth.Account {
	account := c.identity

	c.mu.Lock()
	found := false
	for _, a := range c.accounts {
		if a.ID == account.ID {
			found = true
			break
		}
	}
	if !found {
		c.accounts = append(c.accounts, account)
	}
	c.active = &account
	handlers := c.snapshotHandlersLocked()
	c.mu.Unlock()

	for _, h := range handlers {
		h(ports.Event{Type: ports.EventLoginSuccess, Account: &account})
	}
	return &account
}

func (c *Client) logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = nil
	c.active = nil
	return nil
}

func (c *Client) snapshotHandlersLocked() []ports.EventHandler {
	handlers := make([]ports.EventHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	return handlers
}
