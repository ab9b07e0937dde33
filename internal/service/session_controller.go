package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	apperrors "github.com/helsevakt/vaksineportal/internal/errors"
	"github.com/helsevakt/vaksineportal/internal/observability/statsd"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// Messages are the user-facing notification strings emitted through the
// Notifier surface.
type Messages struct {
	LoginSuccess  string
	LogoutSuccess string
	AuthError     string
	LogoutError   string
}

// DefaultMessages returns the stock notification strings.
func DefaultMessages() Messages {
	return Messages{
		LoginSuccess:  "Innlogging vellykket!",
		LogoutSuccess: "Utlogging vellykket!",
		AuthError:     "Feil ved autentisering. Vennligst prøv igjen.",
		LogoutError:   "Feil ved utlogging",
	}
}

func (m *Messages) applyDefaults() {
	def := DefaultMessages()
	if m.LoginSuccess == "" {
		m.LoginSuccess = def.LoginSuccess
	}
	if m.LogoutSuccess == "" {
		m.LogoutSuccess = def.LogoutSuccess
	}
	if m.AuthError == "" {
		m.AuthError = def.AuthError
	}
	if m.LogoutError == "" {
		m.LogoutError = def.LogoutError
	}
}

// SessionControllerOptions groups dependencies for SessionController.
type SessionControllerOptions struct {
	Factory  ports.ClientFactory
	Platform ports.PlatformPolicy
	Notifier ports.Notifier
	Audit    ports.AuthEventRecorder // optional
	Metrics  statsd.Sink             // optional
	Scopes   []string
	Messages Messages
	Logger   *slog.Logger
}

// SessionController brings the identity client from "unknown" to "settled"
// exactly once per process, resolving the ambiguity between a fresh
// interactive login (popup or redirect), an already-authenticated returning
// session, and a redirect-callback completion. It is the sole writer of the
// active-account reference; all readers receive snapshots.
type SessionController struct {
	factory  ports.ClientFactory
	platform ports.PlatformPolicy
	notifier ports.Notifier
	audit    ports.AuthEventRecorder
	metrics  statsd.Sink
	scopes   []string
	messages Messages
	logger   *slog.Logger

	initGroup singleflight.Group

	mu          sync.Mutex
	client      ports.IdentityClient
	session     domainauth.Session
	settled     bool
	result      domainauth.Settled
	initErr     error
	unsubscribe func()

	observers    map[int]func(domainauth.Settled)
	nextObserver int
}

// NewSessionController constructs a SessionController. The controller does
// not touch the identity provider until Initialize is called.
func NewSessionController(opts SessionControllerOptions) *SessionController {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	msgs := opts.Messages
	msgs.applyDefaults()
	return &SessionController{
		factory:  opts.Factory,
		platform: opts.Platform,
		notifier: opts.Notifier,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		scopes:   append([]string(nil), opts.Scopes...),
		messages: msgs,
		logger:   logger,
		session: domainauth.Session{
			Pending: domainauth.PendingNone,
			State:   domainauth.StateUninitialized,
		},
		observers: make(map[int]func(domainauth.Settled)),
	}
}

// Initialize is the idempotent entry point. Concurrent calls are coalesced
// into one in-flight resolution; later calls return the cached settled
// result without further provider calls. The returned error is non-nil only
// when the identity client could not be constructed; even then the settled
// result is valid (anonymous, initialized) so the caller can render a login
// surface.
func (c *SessionController) Initialize(ctx context.Context) (domainauth.Settled, error) {
	c.mu.Lock()
	if c.settled {
		result, err := c.result, c.initErr
		c.mu.Unlock()
		return result, err
	}
	c.mu.Unlock()

	type initOutcome struct {
		result domainauth.Settled
		err    error
	}
	v, _, _ := c.initGroup.Do("initialize", func() (any, error) {
		result, err := c.initialize(ctx)
		return initOutcome{result: result, err: err}, nil
	})
	outcome := v.(initOutcome)
	return outcome.result, outcome.err
}

func (c *SessionController) initialize(ctx context.Context) (domainauth.Settled, error) {
	c.setState(domainauth.StateResolvingRedirect)

	policy := ports.PersistencePolicy{}
	if c.platform != nil && c.platform.VolatilePersistence() {
		policy.Volatile = true
		policy.CookieFallback = true
	}

	client, err := c.factory.NewClient(ctx, policy)
	if err != nil {
		c.logger.ErrorContext(ctx, "identity client construction failed", "error", err)
		c.count("session.initialize", "outcome", "client_init_failed")
		c.showError(ctx, c.messages.AuthError)
		initErr := apperrors.Wrap(err, apperrors.ErrCodeClientInit, "construct identity client")
		return c.settle(ctx, nil, initErr), initErr
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	// Keep the active-account reference in sync with provider-emitted
	// login/token events for the remaining lifetime of the process.
	unsubscribe := client.Subscribe(c.handleProviderEvent)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	// The redirect callback consumes one-time state and must be resolved
	// before any account-store query; querying first yields stale results.
	account, err := client.ResolveRedirectCallback(ctx)
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "redirect callback resolution failed", "error", err)
		c.count("session.initialize", "outcome", "callback_failed")
		return c.settle(ctx, nil, nil), nil

	case account != nil:
		// Last interactive login wins, even when the store holds other accounts.
		if setErr := client.SetActiveAccount(ctx, account); setErr != nil {
			c.logger.WarnContext(ctx, "set active account failed", "error", setErr)
		}
		c.showSuccess(ctx, c.messages.LoginSuccess)
		c.recordAudit(ctx, ports.AuthEventLoginSuccess, account, "redirect callback")
		c.count("session.initialize", "outcome", "redirect_login")

	default:
		c.setState(domainauth.StateCheckingStore)
		accounts, listErr := client.Accounts(ctx)
		if listErr != nil {
			c.logger.WarnContext(ctx, "account store query failed", "error", listErr)
			c.count("session.initialize", "outcome", "store_failed")
			return c.settle(ctx, nil, nil), nil
		}
		if len(accounts) > 0 {
			// The provider does not guarantee a default in a multi-account
			// store; pick the first in insertion order, consistently.
			account = &accounts[0]
			if setErr := client.SetActiveAccount(ctx, account); setErr != nil {
				c.logger.WarnContext(ctx, "set active account failed", "error", setErr)
			}
			c.count("session.initialize", "outcome", "returning_session")
		} else {
			c.count("session.initialize", "outcome", "anonymous")
		}
	}

	settled := c.settle(ctx, account, nil)

	if account != nil {
		// Silent refresh failure degrades to "interactive login required",
		// it never fails Initialize as a whole.
		if tokenErr := c.EnsureToken(ctx); tokenErr != nil {
			c.logger.WarnContext(ctx, "silent token refresh failed during initialize", "error", tokenErr)
		}
		settled = c.Settled()
		c.mu.Lock()
		c.result = settled
		c.mu.Unlock()
	}

	return settled, nil
}

// settle marks the controller initialized with the given account and stores
// the result for idempotent replay. It transitions initialized false→true
// exactly once and never reverts.
func (c *SessionController) settle(ctx context.Context, account *domainauth.Account, initErr error) domainauth.Settled {
	c.mu.Lock()
	c.session.Account = account
	c.session.Initialized = true
	c.session.Pending = domainauth.PendingNone
	if account != nil {
		c.session.State = domainauth.StateActive
	} else {
		c.session.State = domainauth.StateAnonymous
	}
	c.settled = true
	c.result = domainauth.Settled{Account: account, Initialized: true}
	c.initErr = initErr
	result := c.result
	c.mu.Unlock()

	c.notifyObservers(result)
	c.logger.InfoContext(ctx, "session settled",
		"authenticated", result.Authenticated(),
		"state", c.State())
	return result
}

// EnsureToken attempts a silent token refresh for the active account. When
// the provider reports that interaction is required, the controller
// immediately initiates an interactive redirect login instead of surfacing
// the error; any other error kind is returned to the caller.
func (c *SessionController) EnsureToken(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	account := c.session.Account
	c.mu.Unlock()

	if client == nil || account == nil {
		return nil
	}

	_, err := client.AcquireTokenSilent(ctx, ports.TokenRequest{
		Account: account,
		Scopes:  c.scopes,
	})
	if err == nil {
		return nil
	}

	if !apperrors.IsInteractionRequired(err) {
		return err
	}

	c.logger.InfoContext(ctx, "silent token refresh requires interaction, starting redirect login")
	c.count("session.ensure_token", "outcome", "interaction_required")
	c.recordAudit(ctx, ports.AuthEventSilentRefreshFailed, account, err.Error())
	c.setState(domainauth.StateReauthPending)
	c.recordAudit(ctx, ports.AuthEventReauthTriggered, account, "")

	redirected, redirectErr := client.LoginRedirect(ctx, ports.LoginRequest{Scopes: c.scopes})
	switch {
	case redirectErr != nil:
		// Re-auth failed outright; the stale account must not linger.
		c.logger.WarnContext(ctx, "redirect re-auth failed", "error", redirectErr)
		c.clearAccount(ctx)
	case redirected != nil:
		c.setActive(ctx, redirected)
	default:
		// Interaction continues out-of-band; drop to anonymous until the
		// provider event or the next redirect callback restores the account.
		c.clearAccount(ctx)
		c.setPending(domainauth.PendingLogin)
	}
	return nil
}

// Login triggers interactive authentication. On mobile-class platforms it
// always uses full-page redirect; on desktop it attempts a popup first and
// falls back to redirect once on any failure other than explicit user
// cancellation. Explicit cancellation returns (nil, nil).
func (c *SessionController) Login(ctx context.Context) (*domainauth.Account, error) {
	if _, err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, apperrors.ClientInit("identity client not available")
	}

	// Pending stays "login" while a redirect flow completes out-of-band;
	// setActive clears it on success, the terminal branches below on
	// cancellation or failure.
	c.setPending(domainauth.PendingLogin)

	req := ports.LoginRequest{Scopes: c.scopes, Prompt: "select_account"}

	if c.platform != nil && c.platform.PreferRedirect() {
		c.count("session.login", "mode", "redirect")
		return c.loginRedirect(ctx, client, req)
	}

	account, err := client.LoginPopup(ctx, req)
	if err == nil && account != nil {
		c.count("session.login", "mode", "popup")
		c.setActive(ctx, account)
		c.showSuccess(ctx, c.messages.LoginSuccess)
		c.recordAudit(ctx, ports.AuthEventLoginSuccess, account, "popup")
		return account, nil
	}

	if apperrors.IsUserCancelled(err) {
		c.logger.InfoContext(ctx, "user cancelled login")
		c.count("session.login", "mode", "cancelled")
		c.recordAudit(ctx, ports.AuthEventLoginCancelled, nil, "")
		c.setPending(domainauth.PendingNone)
		return nil, nil
	}

	// Broad fallback: any non-cancellation popup failure gets one redirect
	// retry. See the audit trail for how often this fires.
	c.logger.WarnContext(ctx, "popup login failed, falling back to redirect", "error", err)
	c.count("session.login", "mode", "popup_fallback")
	c.recordAudit(ctx, ports.AuthEventLoginFallback, nil, errString(err))
	return c.loginRedirect(ctx, client, req)
}

func (c *SessionController) loginRedirect(ctx context.Context, client ports.IdentityClient, req ports.LoginRequest) (*domainauth.Account, error) {
	account, err := client.LoginRedirect(ctx, req)
	if err != nil {
		c.setPending(domainauth.PendingNone)
		if apperrors.IsUserCancelled(err) {
			c.recordAudit(ctx, ports.AuthEventLoginCancelled, nil, "")
			return nil, nil
		}
		c.showError(ctx, c.messages.AuthError)
		c.recordAudit(ctx, ports.AuthEventLoginFailed, nil, errString(err))
		c.count("session.login", "mode", "failed")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInteractiveAuthFailed, "interactive login failed")
	}
	if account != nil {
		c.setActive(ctx, account)
		c.showSuccess(ctx, c.messages.LoginSuccess)
		c.recordAudit(ctx, ports.AuthEventLoginSuccess, account, "redirect")
		return account, nil
	}
	// Redirect started; the account arrives with the callback.
	c.setPending(domainauth.PendingLogin)
	return nil, nil
}

// Logout is a no-op when no account is active. Otherwise it invokes the
// provider logout chosen by platform policy and clears the local
// active-account reference unconditionally, even when the provider call
// failed: after the user asked to leave, stale authenticated state must not
// survive locally.
func (c *SessionController) Logout(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	account := c.session.Account
	c.mu.Unlock()

	if account == nil {
		return nil
	}

	c.setPending(domainauth.PendingLogout)
	defer c.setPending(domainauth.PendingNone)

	var err error
	if client != nil {
		req := ports.LogoutRequest{Account: account}
		if c.platform != nil && c.platform.PreferRedirect() {
			err = client.LogoutRedirect(ctx, req)
		} else {
			err = client.LogoutPopup(ctx, req)
		}
	}

	c.clearAccount(ctx)
	c.recordAudit(ctx, ports.AuthEventLogout, account, errString(err))
	c.count("session.logout", "outcome", logoutOutcome(err))

	if err != nil {
		c.logger.WarnContext(ctx, "provider logout failed, local session cleared anyway", "error", err)
		c.showError(ctx, c.messages.LogoutError)
		return err
	}
	c.showSuccess(ctx, c.messages.LogoutSuccess)
	return nil
}

// Settled returns a snapshot of the current settled signal. The snapshot is
// valid only until the next controller-driven update.
func (c *SessionController) Settled() domainauth.Settled {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domainauth.Settled{
		Account:     c.session.Account,
		Initialized: c.session.Initialized,
	}
}

// State returns the controller's current lifecycle state.
func (c *SessionController) State() domainauth.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}

// Subscribe registers an observer for settled-state updates and returns an
// unsubscribe function. Observers receive snapshots and must not cache them
// beyond one render.
func (c *SessionController) Subscribe(fn func(domainauth.Settled)) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close releases the provider event subscription. The controller stays
// readable after Close; it only stops tracking provider events.
func (c *SessionController) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *SessionController) handleProviderEvent(ev ports.Event) {
	if ev.Account == nil {
		return
	}
	switch ev.Type {
	case ports.EventLoginSuccess, ports.EventTokenAcquired:
		c.setActive(context.Background(), ev.Account)
	}
}

func (c *SessionController) setActive(ctx context.Context, account *domainauth.Account) {
	c.mu.Lock()
	client := c.client
	c.session.Account = account
	c.session.State = domainauth.StateActive
	c.session.Pending = domainauth.PendingNone
	initialized := c.session.Initialized
	if initialized {
		c.result = domainauth.Settled{Account: account, Initialized: true}
	}
	snapshot := domainauth.Settled{Account: account, Initialized: initialized}
	c.mu.Unlock()

	if client != nil {
		if err := client.SetActiveAccount(ctx, account); err != nil {
			c.logger.WarnContext(ctx, "set active account failed", "error", err)
		}
	}
	if initialized {
		c.notifyObservers(snapshot)
	}
}

func (c *SessionController) clearAccount(_ context.Context) {
	c.mu.Lock()
	c.session.Account = nil
	c.session.State = domainauth.StateAnonymous
	initialized := c.session.Initialized
	if initialized {
		c.result = domainauth.Settled{Account: nil, Initialized: true}
	}
	snapshot := domainauth.Settled{Account: nil, Initialized: initialized}
	c.mu.Unlock()

	if initialized {
		c.notifyObservers(snapshot)
	}
}

func (c *SessionController) setState(state domainauth.State) {
	c.mu.Lock()
	c.session.State = state
	c.mu.Unlock()
}

func (c *SessionController) setPending(p domainauth.PendingInteraction) {
	c.mu.Lock()
	c.session.Pending = p
	c.mu.Unlock()
}

// Pending returns which interactive flow, if any, is in flight.
func (c *SessionController) Pending() domainauth.PendingInteraction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Pending
}

func (c *SessionController) notifyObservers(snapshot domainauth.Settled) {
	c.mu.Lock()
	fns := make([]func(domainauth.Settled), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

func (c *SessionController) showSuccess(ctx context.Context, msg string) {
	if c.notifier != nil {
		c.notifier.ShowSuccess(ctx, msg)
	}
}

func (c *SessionController) showError(ctx context.Context, msg string) {
	if c.notifier != nil {
		c.notifier.ShowError(ctx, msg)
	}
}

func (c *SessionController) recordAudit(ctx context.Context, kind string, account *domainauth.Account, detail string) {
	if c.audit == nil {
		return
	}
	ev := ports.AuthEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
	if account != nil {
		ev.AccountID = account.ID
		ev.Username = account.Username
	}
	if err := c.audit.Record(ctx, ev); err != nil {
		c.logger.WarnContext(ctx, "record auth event failed", "kind", kind, "error", err)
	}
}

func (c *SessionController) count(name string, tagKey, tagValue string) {
	if c.metrics == nil {
		return
	}
	c.metrics.Count(name, 1, map[string]string{tagKey: tagValue})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func logoutOutcome(err error) string {
	if err != nil {
		return "provider_failed"
	}
	return "ok"
}
