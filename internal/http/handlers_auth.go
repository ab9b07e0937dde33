package httpx

// Package httpx exposes the session controller over a small HTTP facade:
// login initiation, redirect-callback completion, logout, and a settled
// session read. Routing guards and table/dashboard UI live in the
// consuming front-end, not here.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

const (
	cookieSession  = "session_id"
	cookieState    = "oauth_state"
	cookieNonce    = "oauth_nonce"
	cookieRedirect = "post_login_redirect"

	oauthCookieTTL    = 10 * time.Minute
	defaultSessionTTL = 8 * time.Hour
)

// SessionControllerAPI is the slice of the session controller the facade needs.
type SessionControllerAPI interface {
	Initialize(ctx context.Context) (domainauth.Settled, error)
	Login(ctx context.Context) (*domainauth.Account, error)
	Logout(ctx context.Context) error
	Settled() domainauth.Settled
}

// RedirectFlow is implemented by identity clients whose interactive login
// round-trips through the browser. Dev-mode clients complete inline and
// leave this nil.
type RedirectFlow interface {
	SubmitCallback(code, nonce string)
	ResolveRedirectCallback(ctx context.Context) (*domainauth.Account, error)
	ConsumeNavigation() string
	PendingFlow() (state, nonce string)
}

// AuthHandlers provides HTTP handlers for session lifecycle operations.
type AuthHandlers struct {
	Controller SessionControllerAPI
	Flow       RedirectFlow // nil when the identity client completes logins inline
	Sessions   ports.SessionStore
	SessionTTL time.Duration
	Logger     *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) sessionTTL() time.Duration {
	if h.SessionTTL > 0 {
		return h.SessionTTL
	}
	return defaultSessionTTL
}

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	account, err := h.Controller.Login(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	if account != nil {
		// Inline completion (popup-style). Persist the session and go back
		// to where the user wanted to be.
		if saveErr := h.saveSession(w, r, account); saveErr != nil {
			WriteError(w, ErrorParams{
				Code:    http.StatusInternalServerError,
				ErrCode: "session_save_failed",
				Err:     saveErr,
			})
			return
		}
		http.Redirect(w, r, redirectURI, http.StatusFound)
		return
	}

	// No account and no error: either a redirect flow started or the user
	// cancelled. A pending navigation URL distinguishes the two.
	if h.Flow != nil {
		if nav := h.Flow.ConsumeNavigation(); nav != "" {
			state, nonce := h.Flow.PendingFlow()
			h.setOAuthCookies(w, r, state, nonce, redirectURI)
			http.Redirect(w, r, nav, http.StatusFound)
			return
		}
	}

	// User cancelled; back to the application, unauthenticated.
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Callback handles the provider redirect endpoint.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	if h.Flow == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "no_redirect_flow",
			Err:     errors.New("redirect-based login is not configured"),
		})
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}

	stateCookie, err := r.Cookie(cookieState)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonce := ""
	if nonceCookie, cookieErr := r.Cookie(cookieNonce); cookieErr == nil {
		nonce = nonceCookie.Value
	}

	// Hand the one-time fragment to the identity client and resolve it.
	// The session controller observes the resulting login event and
	// updates the active-account reference itself.
	h.Flow.SubmitCallback(code, nonce)
	account, err := h.Flow.ResolveRedirectCallback(r.Context())
	if err != nil {
		h.logger().WarnContext(r.Context(), "redirect callback resolution failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "callback_failed",
			Err:     err,
		})
		return
	}
	if account == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "callback_empty",
			Err:     errors.New("no pending login for callback"),
		})
		return
	}

	if saveErr := h.saveSession(w, r, account); saveErr != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "session_save_failed",
			Err:     saveErr,
		})
		return
	}

	redirectURI := h.consumePostLoginRedirect(w, r)
	h.clearCookie(w, r, cookieState)
	h.clearCookie(w, r, cookieNonce)
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Logout handles the logout endpoint.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie(cookieSession); err == nil {
		if deleteErr := h.Sessions.Delete(r.Context(), sessionCookie.Value); deleteErr != nil {
			h.logger().WarnContext(r.Context(), "delete stored session failed", "error", deleteErr)
		}
	}
	h.clearCookie(w, r, cookieSession)

	if err := h.Controller.Logout(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "provider logout failed", "error", err)
	}

	// A redirect-mode logout navigates through the provider's end-session
	// endpoint; otherwise straight back to the application.
	if h.Flow != nil {
		if nav := h.Flow.ConsumeNavigation(); nav != "" {
			http.Redirect(w, r, nav, http.StatusFound)
			return
		}
	}
	http.Redirect(w, r, safeRedirectPath(r.URL.Query().Get("redirect_uri")), http.StatusFound)
}

// Session handles the settled-session read.
// GET /auth/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	settled := h.Controller.Settled()

	resp := map[string]any{
		"initialized":   settled.Initialized,
		"authenticated": false,
	}

	sessionCookie, err := r.Cookie(cookieSession)
	if err == nil {
		stored, getErr := h.Sessions.Get(r.Context(), sessionCookie.Value)
		switch {
		case getErr == nil:
			resp["authenticated"] = true
			resp["account"] = stored.Account
			WriteJSON(w, http.StatusOK, resp)
			return
		case errors.Is(getErr, ports.ErrSessionNotFound):
			// Stale cookie; drop it and fall through to the settled state.
			h.clearCookie(w, r, cookieSession)
		default:
			// A store outage must not log the browser out: keep the cookie
			// and let the client retry.
			h.logger().WarnContext(r.Context(), "session lookup failed", "error", getErr)
			WriteError(w, ErrorParams{
				Code:    http.StatusServiceUnavailable,
				ErrCode: "session_lookup_failed",
				Err:     getErr,
			})
			return
		}
	}

	if settled.Authenticated() {
		resp["authenticated"] = true
		resp["account"] = settled.Account
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandlers) saveSession(w http.ResponseWriter, r *http.Request, account *domainauth.Account) error {
	sess := domainauth.StoredSession{
		ID:        uuid.NewString(),
		Account:   *account,
		ExpiresAt: time.Now().Add(h.sessionTTL()),
	}
	if err := h.Sessions.Save(r.Context(), sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSession,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, state, nonce, redirectURI string) {
	expires := time.Now().Add(oauthCookieTTL)
	for name, value := range map[string]string{
		cookieState:    state,
		cookieNonce:    nonce,
		cookieRedirect: redirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (h *AuthHandlers) consumePostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if c, err := r.Cookie(cookieRedirect); err == nil {
		redirectURI = safeRedirectPath(c.Value)
	}
	h.clearCookie(w, r, cookieRedirect)
	return redirectURI
}

func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirectPath allows only relative paths (no scheme/host) starting
// with "/"; anything else collapses to "/". Backslashes are rejected
// outright: browsers normalize them to slashes, which would turn "/\host"
// into a protocol-relative redirect.
func safeRedirectPath(redirectURI string) string {
	if redirectURI == "" {
		return "/"
	}
	if strings.Contains(redirectURI, "\\") {
		return "/"
	}
	u, err := url.Parse(redirectURI)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return redirectURI
}
