package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// PlatformPolicyMode selects how the interaction policy is decided.
type PlatformPolicyMode string

const (
	// PlatformPolicyStatic uses the configured PreferRedirect value for every session.
	PlatformPolicyStatic PlatformPolicyMode = "static"
	// PlatformPolicyUserAgent sniffs the browser user agent per session.
	PlatformPolicyUserAgent PlatformPolicyMode = "useragent"
)

// UnmarshalText implements encoding.TextUnmarshaler for PlatformPolicyMode.
func (p *PlatformPolicyMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "static", "useragent":
		*p = PlatformPolicyMode(v)
		return nil
	default:
		return fmt.Errorf("invalid PlatformPolicyMode: %q (valid options: static, useragent)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID              string `env:"CLIENT_ID"                envDefault:"vaksineportal"`
	ClientSecret          string `env:"CLIENT_SECRET"            envDefault:"vaksineportal"`
	RedirectURL           string `env:"REDIRECT_URL"             envDefault:"http://localhost:8080/auth/callback"`
	PostLogoutRedirectURI string `env:"POST_LOGOUT_REDIRECT_URI" envDefault:"http://localhost:8080/"`
	Scope                 string `env:"SCOPE"                    envDefault:"openid profile email"`
	DiscoveryURL          string `env:"DISCOVERY_URL"`
	LogoutURL             string `env:"LOGOUT_URL"`
	Realm                 string `env:"REALM"                    envDefault:"vaksineportal"`

	// Claim mapping expressions (JMESPath) applied to the ID token claims.
	Claims ClaimMappingConfig `envPrefix:"CLAIM_"`
}

// ClaimMappingConfig maps ID token claims onto account fields.
// Empty expressions fall back to the provider adapter defaults.
type ClaimMappingConfig struct {
	ID          string `env:"ID"`
	Username    string `env:"USERNAME"`
	DisplayName string `env:"DISPLAY_NAME"`
	TenantID    string `env:"TENANT_ID"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID      string `env:"USER_ID"      envDefault:"dev-user"`
	Username    string `env:"USERNAME"     envDefault:"dev@helsevakt.local"`
	DisplayName string `env:"DISPLAY_NAME" envDefault:"Dev Bruker"`
	TenantID    string `env:"TENANT_ID"    envDefault:"helsevakt"`
}

// PlatformConfig controls the interaction policy (popup vs full-page redirect).
type PlatformConfig struct {
	// Mode selects between a static policy and per-session user agent sniffing.
	Mode PlatformPolicyMode `env:"MODE" envDefault:"useragent"`

	// PreferRedirect forces full-page redirects when Mode=static.
	PreferRedirect bool `env:"PREFER_REDIRECT" envDefault:"false"`

	// UserAgent is the pinned browser user agent sniffed when Mode=useragent.
	// Embedding shells (webviews, kiosks) set this to their own agent string.
	UserAgent string `env:"USER_AGENT" envDefault:""`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Platform controls popup vs redirect interaction policy.
	Platform PlatformConfig `envPrefix:"PLATFORM_"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	c.OAuth.Scope = strings.TrimSpace(c.OAuth.Scope)
	if c.OAuth.Scope == "" {
		c.OAuth.Scope = "openid profile email"
	}
	if !strings.Contains(" "+c.OAuth.Scope+" ", " openid ") {
		c.OAuth.Scope = "openid " + c.OAuth.Scope
	}
	if c.OAuth.Realm = strings.TrimSpace(c.OAuth.Realm); c.OAuth.Realm == "" {
		c.OAuth.Realm = "vaksineportal"
	}
}
