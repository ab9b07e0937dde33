package identity

// Package identity contains simple hand-written test doubles for the
// identity and storage ports. These are lightweight and suitable for unit
// tests without codegen.

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityClient    = (*ScriptedClient)(nil)
	_ ports.ClientFactory     = (*Factory)(nil)
	_ ports.PlatformPolicy    = (*StaticPolicy)(nil)
	_ ports.Notifier          = (*RecordingNotifier)(nil)
	_ ports.AuthEventRecorder = (*MemoryAuditLog)(nil)
	_ ports.AccountStore      = (*MemoryAccountStore)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
)

// ScriptedClient is an IdentityClient whose behavior is scripted per method.
// Unset functions fall back to benign defaults. Call counters make
// idempotence assertions cheap.
type ScriptedClient struct {
	ResolveRedirectCallbackFunc func(ctx context.Context) (*domainauth.Account, error)
	AccountsFunc                func(ctx context.Context) ([]domainauth.Account, error)
	AcquireTokenSilentFunc      func(ctx context.Context, req ports.TokenRequest) (ports.Token, error)
	LoginPopupFunc              func(ctx context.Context, req ports.LoginRequest) (*domainauth.Account, error)
	LoginRedirectFunc           func(ctx context.Context, req ports.LoginRequest) (*domainauth.Account, error)
	LogoutPopupFunc             func(ctx context.Context, req ports.LogoutRequest) error
	LogoutRedirectFunc          func(ctx context.Context, req ports.LogoutRequest) error

	mu       sync.Mutex
	active   *domainauth.Account
	handlers []ports.EventHandler

	ResolveCalls        int
	AccountsCalls       int
	SilentCalls         int
	LoginPopupCalls     int
	LoginRedirectCalls  int
	LogoutPopupCalls    int
	LogoutRedirectCalls int
	SetActiveCalls      int
	SubscribeCalls      int
}

func (s *ScriptedClient) ResolveRedirectCallback(ctx context.Context) (*domainauth.Account, error) {
	s.mu.Lock()
	s.ResolveCalls++
	fn := s.ResolveRedirectCallbackFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil, nil
}

func (s *ScriptedClient) Accounts(ctx context.Context) ([]domainauth.Account, error) {
	s.mu.Lock()
	s.AccountsCalls++
	fn := s.AccountsFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil, nil
}

func (s *ScriptedClient) SetActiveAccount(_ context.Context, a *domainauth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetActiveCalls++
	s.active = a
	return nil
}

// Active returns the account last passed to SetActiveAccount.
func (s *ScriptedClient) Active() *domainauth.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *ScriptedClient) AcquireTokenSilent(ctx context.Context, req ports.TokenRequest) (ports.Token, error) {
	s.mu.Lock()
	s.SilentCalls++
	fn := s.AcquireTokenSilentFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return ports.Token{AccessToken: "scripted-token"}, nil
}

func (s *ScriptedClient) LoginPopup(ctx context.Context, req ports.LoginRequest) (*domainauth.Account, error) {
	s.mu.Lock()
	s.LoginPopupCalls++
	fn := s.LoginPopupFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil, errors.New("popup not scripted")
}

func (s *ScriptedClient) LoginRedirect(ctx context.Context, req ports.LoginRequest) (*domainauth.Account, error) {
	s.mu.Lock()
	s.LoginRedirectCalls++
	fn := s.LoginRedirectFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil, nil
}

func (s *ScriptedClient) LogoutPopup(ctx context.Context, req ports.LogoutRequest) error {
	s.mu.Lock()
	s.LogoutPopupCalls++
	fn := s.LogoutPopupFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil
}

func (s *ScriptedClient) LogoutRedirect(ctx context.Context, req ports.LogoutRequest) error {
	s.mu.Lock()
	s.LogoutRedirectCalls++
	fn := s.LogoutRedirectFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil
}

func (s *ScriptedClient) Subscribe(h ports.EventHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SubscribeCalls++
	s.handlers = append(s.handlers, h)
	idx := len(s.handlers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.handlers) {
			s.handlers[idx] = nil
		}
	}
}

// Emit delivers an event to all live subscribers, mimicking a provider
// event broadcast.
func (s *ScriptedClient) Emit(ev ports.Event) {
	s.mu.Lock()
	handlers := append([]ports.EventHandler(nil), s.handlers...)
	s.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h(ev)
		}
	}
}

// Factory returns a scripted client, counting constructions so tests can
// assert construction happens exactly once.
type Factory struct {
	Client ports.IdentityClient
	Err    error

	mu    sync.Mutex
	calls int
}

func (f *Factory) NewClient(_ context.Context, _ ports.PersistencePolicy) (ports.IdentityClient, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

// Constructions reports how many times NewClient ran.
func (f *Factory) Constructions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// StaticPolicy is a fixed platform policy.
type StaticPolicy struct {
	Redirect bool
	Volatile bool
}

func (p StaticPolicy) PreferRedirect() bool      { return p.Redirect }
func (p StaticPolicy) VolatilePersistence() bool { return p.Volatile }

// RecordingNotifier captures success and error notifications in order.
type RecordingNotifier struct {
	mu        sync.Mutex
	Successes []string
	Errors    []string
}

func (n *RecordingNotifier) ShowSuccess(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Successes = append(n.Successes, message)
}

func (n *RecordingNotifier) ShowError(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, message)
}

// SuccessCount returns the number of success notifications delivered.
func (n *RecordingNotifier) SuccessCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Successes)
}

// ErrorCount returns the number of error notifications delivered.
func (n *RecordingNotifier) ErrorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Errors)
}

// MemoryAuditLog collects auth events in memory.
type MemoryAuditLog struct {
	mu     sync.Mutex
	Events []ports.AuthEvent
}

func (l *MemoryAuditLog) Record(_ context.Context, ev ports.AuthEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Events = append(l.Events, ev)
	return nil
}

// Kinds returns the recorded event kinds in order.
func (l *MemoryAuditLog) Kinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]string, 0, len(l.Events))
	for _, ev := range l.Events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// MemoryAccountStore is an in-memory account store for unit tests.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string][]domainauth.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string][]domainauth.Account)}
}

func (m *MemoryAccountStore) Append(_ context.Context, realm string, a domainauth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.accounts[realm] {
		if existing.ID == a.ID {
			m.accounts[realm][i] = a
			return nil
		}
	}
	m.accounts[realm] = append(m.accounts[realm], a)
	return nil
}

func (m *MemoryAccountStore) List(_ context.Context, realm string) ([]domainauth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domainauth.Account(nil), m.accounts[realm]...), nil
}

func (m *MemoryAccountStore) Remove(_ context.Context, realm, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.accounts[realm][:0]
	for _, a := range m.accounts[realm] {
		if a.ID != accountID {
			kept = append(kept, a)
		}
	}
	m.accounts[realm] = kept
	return nil
}

func (m *MemoryAccountStore) Clear(_ context.Context, realm string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, realm)
	return nil
}

// MemorySessionStore is an in-memory stored-session backend for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.StoredSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.StoredSession)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.StoredSession) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.StoredSession{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
