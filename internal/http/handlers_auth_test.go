package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	mocksidentity "github.com/helsevakt/vaksineportal/internal/mocks/identity"
)

type fakeController struct {
	loginAccount *domainauth.Account
	loginErr     error
	logoutErr    error
	settled      domainauth.Settled

	loginCalls  int
	logoutCalls int
}

func (f *fakeController) Initialize(context.Context) (domainauth.Settled, error) {
	return f.settled, nil
}

func (f *fakeController) Login(context.Context) (*domainauth.Account, error) {
	f.loginCalls++
	return f.loginAccount, f.loginErr
}

func (f *fakeController) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeController) Settled() domainauth.Settled { return f.settled }

type fakeFlow struct {
	navigation     string
	state          string
	nonce          string
	resolveAccount *domainauth.Account
	resolveErr     error

	submittedCode  string
	submittedNonce string
}

func (f *fakeFlow) SubmitCallback(code, nonce string) {
	f.submittedCode = code
	f.submittedNonce = nonce
}

func (f *fakeFlow) ResolveRedirectCallback(context.Context) (*domainauth.Account, error) {
	return f.resolveAccount, f.resolveErr
}

func (f *fakeFlow) ConsumeNavigation() string {
	nav := f.navigation
	f.navigation = ""
	return nav
}

func (f *fakeFlow) PendingFlow() (string, string) { return f.state, f.nonce }

func portalAccount() *domainauth.Account {
	return &domainauth.Account{
		ID:          "u1",
		Username:    "kari@helsevakt.no",
		DisplayName: "Kari Nordmann",
		TenantID:    "helsevakt",
	}
}

func newHandlers(controller *fakeController, flow RedirectFlow) (*AuthHandlers, *mocksidentity.MemorySessionStore) {
	store := mocksidentity.NewMemorySessionStore()
	return &AuthHandlers{
		Controller: controller,
		Flow:       flow,
		Sessions:   store,
		SessionTTL: time.Hour,
	}, store
}

func cookieByName(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_InlineCompletion(t *testing.T) {
	controller := &fakeController{loginAccount: portalAccount()}
	handlers, store := newHandlers(controller, nil)

	rec := httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/pasienter", nil))

	resp := rec.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/pasienter", resp.Header.Get("Location"))

	sessionCookie := cookieByName(t, resp, cookieSession)
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	stored, err := store.Get(context.Background(), sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.Account.ID)
}

func TestLogin_RedirectFlowStarts(t *testing.T) {
	controller := &fakeController{}
	flow := &fakeFlow{
		navigation: "https://idp.example.com/authorize?state=abc",
		state:      "abc",
		nonce:      "n1",
	}
	handlers, _ := newHandlers(controller, flow)

	rec := httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/tender", nil))

	resp := rec.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://idp.example.com/authorize?state=abc", resp.Header.Get("Location"))

	stateCookie := cookieByName(t, resp, cookieState)
	require.NotNil(t, stateCookie)
	assert.Equal(t, "abc", stateCookie.Value)

	redirectCookie := cookieByName(t, resp, cookieRedirect)
	require.NotNil(t, redirectCookie)
	assert.Equal(t, "/tender", redirectCookie.Value)
}

func TestLogin_CancelledReturnsToApp(t *testing.T) {
	// Login returned no account, no error, and no navigation is pending:
	// the user dismissed the interactive flow.
	controller := &fakeController{}
	handlers, _ := newHandlers(controller, &fakeFlow{})

	rec := httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	resp := rec.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Nil(t, cookieByName(t, resp, cookieSession))
}

func TestLogin_ControllerError(t *testing.T) {
	controller := &fakeController{loginErr: errors.New("interactive authentication failed")}
	handlers, _ := newHandlers(controller, nil)

	rec := httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "login_failed", body["error"])
}

func TestLogin_RejectsAbsoluteRedirect(t *testing.T) {
	controller := &fakeController{loginAccount: portalAccount()}
	handlers, _ := newHandlers(controller, nil)

	rec := httptest.NewRecorder()
	handlers.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=https://evil.example.com/", nil))

	assert.Equal(t, "/", rec.Result().Header.Get("Location"))
}

func TestCallback_Success(t *testing.T) {
	controller := &fakeController{}
	flow := &fakeFlow{resolveAccount: portalAccount()}
	handlers, store := newHandlers(controller, flow)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c1&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: cookieState, Value: "abc"})
	req.AddCookie(&http.Cookie{Name: cookieNonce, Value: "n1"})
	req.AddCookie(&http.Cookie{Name: cookieRedirect, Value: "/pasienter"})

	rec := httptest.NewRecorder()
	handlers.Callback(rec, req)

	resp := rec.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/pasienter", resp.Header.Get("Location"))

	assert.Equal(t, "c1", flow.submittedCode)
	assert.Equal(t, "n1", flow.submittedNonce)

	sessionCookie := cookieByName(t, resp, cookieSession)
	require.NotNil(t, sessionCookie)
	_, err := store.Get(context.Background(), sessionCookie.Value)
	require.NoError(t, err)

	// One-time flow cookies are cleared.
	stateCookie := cookieByName(t, resp, cookieState)
	require.NotNil(t, stateCookie)
	assert.Negative(t, stateCookie.MaxAge)
}

func TestCallback_NoFlowConfigured(t *testing.T) {
	handlers, _ := newHandlers(&fakeController{}, nil)

	rec := httptest.NewRecorder()
	handlers.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c1&state=abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no_redirect_flow", body["error"])
}

func TestCallback_MissingCode(t *testing.T) {
	handlers, _ := newHandlers(&fakeController{}, &fakeFlow{})

	rec := httptest.NewRecorder()
	handlers.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_code", body["error"])
}

func TestCallback_StateMismatch(t *testing.T) {
	handlers, _ := newHandlers(&fakeController{}, &fakeFlow{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c1&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: cookieState, Value: "abc"})

	rec := httptest.NewRecorder()
	handlers.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_state", body["error"])
}

func TestCallback_ResolutionFailure(t *testing.T) {
	flow := &fakeFlow{resolveErr: errors.New("token exchange failed")}
	handlers, _ := newHandlers(&fakeController{}, flow)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c1&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: cookieState, Value: "abc"})

	rec := httptest.NewRecorder()
	handlers.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "callback_failed", body["error"])
}

func TestCallback_NoPendingLogin(t *testing.T) {
	handlers, _ := newHandlers(&fakeController{}, &fakeFlow{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c1&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: cookieState, Value: "abc"})

	rec := httptest.NewRecorder()
	handlers.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "callback_empty", body["error"])
}

func TestLogout_DeletesSessionAndRedirects(t *testing.T) {
	controller := &fakeController{}
	handlers, store := newHandlers(controller, nil)

	require.NoError(t, store.Save(context.Background(), domainauth.StoredSession{
		ID:        "s1",
		Account:   *portalAccount(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookieSession, Value: "s1"})

	rec := httptest.NewRecorder()
	handlers.Logout(rec, req)

	resp := rec.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, controller.logoutCalls)

	_, err := store.Get(context.Background(), "s1")
	require.Error(t, err)

	cleared := cookieByName(t, resp, cookieSession)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestLogout_ClearsCookieDespiteProviderFailure(t *testing.T) {
	controller := &fakeController{logoutErr: errors.New("end session failed")}
	handlers, _ := newHandlers(controller, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookieSession, Value: "s1"})

	rec := httptest.NewRecorder()
	handlers.Logout(rec, req)

	resp := rec.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	cleared := cookieByName(t, resp, cookieSession)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestLogout_RedirectModeNavigatesToProvider(t *testing.T) {
	flow := &fakeFlow{navigation: "https://idp.example.com/logout"}
	handlers, _ := newHandlers(&fakeController{}, flow)

	rec := httptest.NewRecorder()
	handlers.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, "https://idp.example.com/logout", rec.Result().Header.Get("Location"))
}

func TestSession_AnonymousBeforeInit(t *testing.T) {
	handlers, _ := newHandlers(&fakeController{}, nil)

	rec := httptest.NewRecorder()
	handlers.Session(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["initialized"])
	assert.Equal(t, false, body["authenticated"])
	assert.NotContains(t, body, "account")
}

func TestSession_WithStoredSession(t *testing.T) {
	controller := &fakeController{settled: domainauth.Settled{Initialized: true}}
	handlers, store := newHandlers(controller, nil)

	require.NoError(t, store.Save(context.Background(), domainauth.StoredSession{
		ID:        "s1",
		Account:   *portalAccount(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: cookieSession, Value: "s1"})

	rec := httptest.NewRecorder()
	handlers.Session(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["initialized"])
	assert.Equal(t, true, body["authenticated"])

	account, ok := body["account"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u1", account["id"])
	assert.Equal(t, "kari@helsevakt.no", account["username"])
}

func TestSession_StaleCookieFallsBackToSettled(t *testing.T) {
	controller := &fakeController{settled: domainauth.Settled{
		Initialized: true,
		Account:     portalAccount(),
	}}
	handlers, _ := newHandlers(controller, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: cookieSession, Value: "gone"})

	rec := httptest.NewRecorder()
	handlers.Session(rec, req)

	resp := rec.Result()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])

	cleared := cookieByName(t, resp, cookieSession)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

type failingSessionStore struct {
	mocksidentity.MemorySessionStore
}

func (f *failingSessionStore) Get(context.Context, string) (domainauth.StoredSession, error) {
	return domainauth.StoredSession{}, errors.New("redis: connection refused")
}

func TestSession_StoreOutageKeepsCookie(t *testing.T) {
	controller := &fakeController{settled: domainauth.Settled{Initialized: true}}
	handlers, _ := newHandlers(controller, nil)
	handlers.Sessions = &failingSessionStore{}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: cookieSession, Value: "s1"})

	rec := httptest.NewRecorder()
	handlers.Session(rec, req)

	resp := rec.Result()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session_lookup_failed", body["error"])

	// A transient store failure must not discard the browser's session.
	assert.Nil(t, cookieByName(t, resp, cookieSession))
}

func TestSafeRedirectPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "/"},
		{"relative path", "/pasienter", "/pasienter"},
		{"path with query", "/tender?side=2", "/tender?side=2"},
		{"absolute url", "https://evil.example.com/", "/"},
		{"protocol relative", "//evil.example.com/", "/"},
		{"no leading slash", "pasienter", "/"},
		{"garbage", "://", "/"},
		{"backslash host", `/\evil.example.com`, "/"},
		{"embedded backslash", `/pasienter\..\admin`, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeRedirectPath(tt.in))
		})
	}
}
