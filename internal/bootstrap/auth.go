package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helsevakt/vaksineportal/config"
	"github.com/helsevakt/vaksineportal/internal/adapters/devidentity"
	"github.com/helsevakt/vaksineportal/internal/adapters/oidc"
	"github.com/helsevakt/vaksineportal/internal/adapters/platform"
	redisadapter "github.com/helsevakt/vaksineportal/internal/adapters/redis"
	"github.com/helsevakt/vaksineportal/internal/data"
	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	apperrors "github.com/helsevakt/vaksineportal/internal/errors"
	httpx "github.com/helsevakt/vaksineportal/internal/http"
	"github.com/helsevakt/vaksineportal/internal/observability/statsd"
	"github.com/helsevakt/vaksineportal/internal/ports"
	"github.com/helsevakt/vaksineportal/internal/service"
)

// AuthConfig contains dependencies for assembling the session controller.
type AuthConfig struct {
	Config      config.AppConfig
	RedisClient redis.UniversalClient
	DB          *sql.DB
	Metrics     statsd.Sink
	Notifier    ports.Notifier
	Logger      *slog.Logger
}

// AuthComponents is the assembled session controller plus the pieces the
// HTTP facade needs alongside it.
type AuthComponents struct {
	Controller *service.SessionController
	// Flow is the redirect flow of the OIDC client. Nil in mock mode, where
	// interactive logins complete inline.
	Flow httpx.RedirectFlow
	// Sessions is the server-side stored-session backend.
	Sessions ports.SessionStore
}

// BuildSessionController wires the identity client factory, platform
// policy, stores, and observability into a session controller based on the
// configured auth mode.
func BuildSessionController(cfg AuthConfig) *AuthComponents {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sessions ports.SessionStore
	if cfg.RedisClient != nil {
		sessions = redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, "session:")
	}

	var audit ports.AuthEventRecorder
	if cfg.DB != nil {
		audit = data.NewAuthEventRepo(cfg.DB)
	}

	policy := buildPlatformPolicy(cfg.Config.Auth.Platform)

	opts := service.SessionControllerOptions{
		Platform: policy,
		Notifier: cfg.Notifier,
		Audit:    audit,
		Metrics:  cfg.Metrics,
		Scopes:   strings.Fields(cfg.Config.Auth.OAuth.Scope),
		Logger:   logger,
	}

	components := &AuthComponents{Sessions: sessions}

	switch cfg.Config.Auth.Mode {
	case config.AuthModeMock:
		opts.Factory = devFactory(cfg.Config.Auth.DevAuth)

	default:
		holder := &flowHolder{}
		opts.Factory = oauthFactory(cfg.Config.Auth.OAuth, cfg.RedisClient, holder)
		components.Flow = holder
	}

	components.Controller = service.NewSessionController(opts)
	return components
}

func buildPlatformPolicy(cfg config.PlatformConfig) ports.PlatformPolicy {
	if cfg.Mode == config.PlatformPolicyUserAgent {
		return platform.FromUserAgent(cfg.UserAgent)
	}
	return platform.Static(cfg.PreferRedirect)
}

func devFactory(cfg config.DevAuthConfig) ports.ClientFactory {
	return ports.ClientFactoryFunc(func(_ context.Context, _ ports.PersistencePolicy) (ports.IdentityClient, error) {
		return devidentity.NewClient(devidentity.Config{
			UserID:      cfg.UserID,
			Username:    cfg.Username,
			DisplayName: cfg.DisplayName,
			TenantID:    cfg.TenantID,
		})
	})
}

func oauthFactory(cfg config.OAuthConfig, redisClient redis.UniversalClient, holder *flowHolder) ports.ClientFactory {
	return ports.ClientFactoryFunc(func(ctx context.Context, policy ports.PersistencePolicy) (ports.IdentityClient, error) {
		var accounts ports.AccountStore
		if redisClient != nil {
			// Volatile persistence bounds the account cache to a session
			// lifetime instead of keeping it durable.
			ttl := time.Duration(0)
			if policy.Volatile {
				ttl = 8 * time.Hour
			}
			accounts = redisadapter.NewAccountStore(redisClient, ttl)
		}

		client, err := oidc.NewClient(ctx, oidc.ClientConfig{
			ClientID:              cfg.ClientID,
			ClientSecret:          cfg.ClientSecret,
			RedirectURL:           cfg.RedirectURL,
			PostLogoutRedirectURI: cfg.PostLogoutRedirectURI,
			Scope:                 cfg.Scope,
			DiscoveryURL:          cfg.DiscoveryURL,
			LogoutURL:             cfg.LogoutURL,
			Realm:                 cfg.Realm,
			Claims: oidc.ClaimMappings{
				ID:          cfg.Claims.ID,
				Username:    cfg.Claims.Username,
				DisplayName: cfg.Claims.DisplayName,
				TenantID:    cfg.Claims.TenantID,
			},
			Accounts: accounts,
		})
		if err != nil {
			return nil, err
		}

		holder.set(client)
		return client, nil
	})
}

// flowHolder exposes the redirect flow of the OIDC client to the HTTP
// facade. The client is constructed lazily by the controller on first
// Initialize, so the facade resolves it through the holder at call time.
type flowHolder struct {
	mu     sync.Mutex
	client *oidc.Client
}

var _ httpx.RedirectFlow = (*flowHolder)(nil)

func (h *flowHolder) set(c *oidc.Client) {
	h.mu.Lock()
	h.client = c
	h.mu.Unlock()
}

func (h *flowHolder) get() *oidc.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

// SubmitCallback implements httpx.RedirectFlow.
func (h *flowHolder) SubmitCallback(code, nonce string) {
	if c := h.get(); c != nil {
		c.SubmitCallback(code, nonce)
	}
}

// ResolveRedirectCallback implements httpx.RedirectFlow.
func (h *flowHolder) ResolveRedirectCallback(ctx context.Context) (*domainauth.Account, error) {
	c := h.get()
	if c == nil {
		return nil, apperrors.CallbackResolution("identity client not initialized")
	}
	return c.ResolveRedirectCallback(ctx)
}

// ConsumeNavigation implements httpx.RedirectFlow.
func (h *flowHolder) ConsumeNavigation() string {
	if c := h.get(); c != nil {
		return c.ConsumeNavigation()
	}
	return ""
}

// PendingFlow implements httpx.RedirectFlow.
func (h *flowHolder) PendingFlow() (state, nonce string) {
	if c := h.get(); c != nil {
		return c.PendingFlow()
	}
	return "", ""
}
