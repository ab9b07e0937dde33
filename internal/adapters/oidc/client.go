package oidc

// Package oidc implements the IdentityClient port over an OIDC/OAuth2
// provider. Redirect navigation is cooperative with the HTTP facade: the
// facade submits the authorization-code callback it receives, and
// ResolveRedirectCallback consumes it exactly once.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	apperrors "github.com/helsevakt/vaksineportal/internal/errors"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// ClientConfig holds configuration for the OIDC identity client.
type ClientConfig struct {
	ClientID              string
	ClientSecret          string
	RedirectURL           string
	PostLogoutRedirectURI string
	Scope                 string
	DiscoveryURL          string
	LogoutURL             string
	Realm                 string
	Claims                ClaimMappings
	Accounts              ports.AccountStore
	HTTPClient            *http.Client // Optional, defaults to a 30s-timeout client
}

// pendingCallback is a one-time redirect fragment handed in by the HTTP
// facade, consumed by ResolveRedirectCallback.
type pendingCallback struct {
	code  string
	nonce string
}

// Client implements ports.IdentityClient using OIDC discovery, the OAuth2
// authorization-code flow, and refresh-token based silent renewal.
type Client struct {
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
	provider *gooidc.Provider

	logoutURL             string
	postLogoutRedirectURI string
	realm                 string
	claims                *claimMapper
	accounts              ports.AccountStore

	mu        sync.Mutex
	pending   *pendingCallback
	active    *domainauth.Account
	tokens    map[string]*oauth2.Token
	nextNav   string
	lastState string
	lastNonce string
	handlers  map[int]ports.EventHandler
	handlerID int
}

var _ ports.IdentityClient = (*Client)(nil)

// NewClient creates an OIDC identity client, performing a single discovery
// fetch against the issuer.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	if cfg.Accounts == nil {
		return nil, errors.New("account store is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	mapper, err := newClaimMapper(cfg.Claims)
	if err != nil {
		return nil, fmt.Errorf("claim mappings: %w", err)
	}

	discoveryCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	provider, err := gooidc.NewProvider(discoveryCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	realm := cfg.Realm
	if realm == "" {
		realm = "default"
	}

	return &Client{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     provider.Endpoint(),
		},
		verifier:              provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		provider:              provider,
		logoutURL:             cfg.LogoutURL,
		postLogoutRedirectURI: cfg.PostLogoutRedirectURI,
		realm:                 realm,
		claims:                mapper,
		accounts:              cfg.Accounts,
		tokens:                make(map[string]*oauth2.Token),
		handlers:              make(map[int]ports.EventHandler),
	}, nil
}

// SubmitCallback hands in the authorization-code callback received by the
// HTTP facade. The next ResolveRedirectCallback consumes it.
func (c *Client) SubmitCallback(code, nonce string) {
	c.mu.Lock()
	c.pending = &pendingCallback{code: code, nonce: nonce}
	c.mu.Unlock()
}

// ResolveRedirectCallback exchanges any pending authorization code for an
// identity. It must run before account queries: the exchange both consumes
// one-time state and refreshes the account store entry the queries read.
func (c *Client) ResolveRedirectCallback(ctx context.Context) (*domainauth.Account, error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending == nil {
		return nil, nil
	}

	token, err := c.config.Exchange(ctx, pending.code)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCallbackResolution, "exchange authorization code")
	}

	account, err := c.accountFromToken(ctx, token, pending.nonce)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCallbackResolution, "resolve identity from token")
	}

	if appendErr := c.accounts.Append(ctx, c.realm, *account); appendErr != nil {
		return nil, apperrors.Wrap(appendErr, apperrors.ErrCodeCallbackResolution, "persist account")
	}

	c.mu.Lock()
	c.tokens[account.ID] = token
	c.mu.Unlock()

	c.emit(ports.Event{Type: ports.EventLoginSuccess, Account: account})
	return account, nil
}

// Accounts lists the persisted account store in insertion order.
func (c *Client) Accounts(ctx context.Context) ([]domainauth.Account, error) {
	return c.accounts.List(ctx, c.realm)
}

// SetActiveAccount records the active account reference.
func (c *Client) SetActiveAccount(_ context.Context, a *domainauth.Account) error {
	c.mu.Lock()
	c.active = a
	c.mu.Unlock()
	return nil
}

// AcquireTokenSilent returns a valid access token for the account,
// refreshing through the provider when the cached token has expired. When
// no refresh is possible the error carries the interaction_required code.
func (c *Client) AcquireTokenSilent(ctx context.Context, req ports.TokenRequest) (ports.Token, error) {
	if req.Account == nil {
		return ports.Token{}, apperrors.Validation("account is required")
	}

	c.mu.Lock()
	cached := c.tokens[req.Account.ID]
	c.mu.Unlock()

	if cached == nil {
		return ports.Token{}, apperrors.InteractionRequired("no cached token for account")
	}
	if cached.Valid() {
		return portToken(cached), nil
	}

	refreshed, err := c.config.TokenSource(ctx, cached).Token()
	if err != nil {
		if interactionRequired(err) {
			return ports.Token{}, apperrors.Wrap(err, apperrors.ErrCodeInteractionRequired, "silent renewal rejected by provider")
		}
		return ports.Token{}, fmt.Errorf("refresh token: %w", err)
	}

	c.mu.Lock()
	c.tokens[req.Account.ID] = refreshed
	c.mu.Unlock()

	c.emit(ports.Event{Type: ports.EventTokenAcquired, Account: req.Account})
	return portToken(refreshed), nil
}

// LoginPopup is not supported server-side; it fails with the popup_failed
// code so the controller exercises its redirect fallback.
func (c *Client) LoginPopup(_ context.Context, _ ports.LoginRequest) (*domainauth.Account, error) {
	return nil, apperrors.PopupFailed("popup login is not available on this platform")
}

// LoginRedirect records an authorization URL for the HTTP facade and
// returns a nil account: the interaction completes out-of-band via
// SubmitCallback and a later ResolveRedirectCallback.
func (c *Client) LoginRedirect(_ context.Context, req ports.LoginRequest) (*domainauth.Account, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
	}
	if req.Prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", req.Prompt))
	}
	authURL := c.config.AuthCodeURL(state, opts...)

	c.mu.Lock()
	c.nextNav = authURL
	c.lastState = state
	c.lastNonce = nonce
	c.mu.Unlock()

	return nil, nil
}

// LogoutPopup clears local token and account state; there is no
// provider-side popup on this platform.
func (c *Client) LogoutPopup(ctx context.Context, req ports.LogoutRequest) error {
	return c.logoutLocal(ctx, req)
}

// LogoutRedirect clears local state and records the provider end-session
// URL for the HTTP facade to navigate to.
func (c *Client) LogoutRedirect(ctx context.Context, req ports.LogoutRequest) error {
	if err := c.logoutLocal(ctx, req); err != nil {
		return err
	}
	if c.logoutURL == "" {
		return nil
	}

	nav := c.logoutURL
	postLogout := req.PostLogoutRedirectURI
	if postLogout == "" {
		postLogout = c.postLogoutRedirectURI
	}
	if postLogout != "" {
		sep := "?"
		if strings.Contains(nav, "?") {
			sep = "&"
		}
		nav += sep + "post_logout_redirect_uri=" + url.QueryEscape(postLogout)
	}

	c.mu.Lock()
	c.nextNav = nav
	c.mu.Unlock()
	return nil
}

// Subscribe registers a handler for login/token events.
func (c *Client) Subscribe(h ports.EventHandler) func() {
	c.mu.Lock()
	id := c.handlerID
	c.handlerID++
	c.handlers[id] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

// ConsumeNavigation returns and clears the URL the HTTP facade should
// redirect the browser to after a LoginRedirect or LogoutRedirect call.
func (c *Client) ConsumeNavigation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	nav := c.nextNav
	c.nextNav = ""
	return nav
}

// PendingFlow returns the state and nonce of the last redirect login, for
// the HTTP facade to pin in secure cookies.
func (c *Client) PendingFlow() (state, nonce string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastState, c.lastNonce
}

func (c *Client) logoutLocal(ctx context.Context, req ports.LogoutRequest) error {
	c.mu.Lock()
	if req.Account != nil {
		delete(c.tokens, req.Account.ID)
	}
	c.active = nil
	c.mu.Unlock()

	if req.Account != nil {
		return c.accounts.Remove(ctx, c.realm, req.Account.ID)
	}
	return c.accounts.Clear(ctx, c.realm)
}

func (c *Client) accountFromToken(ctx context.Context, token *oauth2.Token, expectedNonce string) (*domainauth.Account, error) {
	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return nil, errors.New("missing id_token in token response")
	}

	idToken, err := c.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if expectedNonce != "" && idToken.Nonce != expectedNonce {
		return nil, errors.New("invalid nonce")
	}

	var raw map[string]any
	if claimsErr := idToken.Claims(&raw); claimsErr != nil {
		return nil, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}

	account, err := c.claims.Map(raw)
	if err != nil {
		return nil, err
	}
	if account.ID == "" || account.Username == "" {
		if fillErr := c.fillFromUserInfo(ctx, token, account); fillErr != nil {
			return nil, fillErr
		}
	}
	if account.ID == "" {
		return nil, errors.New("no stable account identifier in claims")
	}
	return account, nil
}

func (c *Client) fillFromUserInfo(ctx context.Context, token *oauth2.Token, account *domainauth.Account) error {
	info, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var raw map[string]any
	if claimsErr := info.Claims(&raw); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	c.claims.Fill(account, raw)
	return nil
}

func (c *Client) emit(ev ports.Event) {
	c.mu.Lock()
	handlers := make([]ports.EventHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// interactionRequired reports whether a token refresh failure means the
// user must authenticate interactively (expired/revoked grant or a consent
// change) rather than a transient fault.
func interactionRequired(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	switch retrieveErr.ErrorCode {
	case "invalid_grant", "interaction_required", "login_required", "consent_required":
		return true
	default:
		return false
	}
}

func portToken(tok *oauth2.Token) ports.Token {
	return ports.Token{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry.Unix(),
	}
}

// generateRandomString generates a cryptographically secure URL-safe random
// string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
