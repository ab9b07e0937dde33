package oidc

import (
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
)

// ClaimMappings configures how provider claims map onto Account fields.
// Each value is a JMESPath expression evaluated against the raw claim set;
// empty fields use the defaults below. Providers differ widely here (plain
// OIDC, AD FS, Azure AD), which is why the mapping is configuration rather
// than code.
type ClaimMappings struct {
	ID          string
	Username    string
	DisplayName string
	TenantID    string
}

func defaultClaimMappings() ClaimMappings {
	return ClaimMappings{
		ID:          "sub",
		Username:    "preferred_username || upn || email || sub",
		DisplayName: "name",
		TenantID:    "tid",
	}
}

// claimMapper evaluates validated claim expressions against raw claims.
type claimMapper struct {
	id          string
	username    string
	displayName string
	tenantID    string
}

func newClaimMapper(cfg ClaimMappings) (*claimMapper, error) {
	def := defaultClaimMappings()
	if cfg.ID == "" {
		cfg.ID = def.ID
	}
	if cfg.Username == "" {
		cfg.Username = def.Username
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = def.DisplayName
	}
	if cfg.TenantID == "" {
		cfg.TenantID = def.TenantID
	}

	// Validate every expression up front; evaluation failures later are
	// treated as missing claims.
	for _, expr := range []struct {
		name   string
		source string
	}{
		{"id", cfg.ID},
		{"username", cfg.Username},
		{"display_name", cfg.DisplayName},
		{"tenant_id", cfg.TenantID},
	} {
		if _, err := jmespath.Compile(expr.source); err != nil {
			return nil, fmt.Errorf("compile %s expression %q: %w", expr.name, expr.source, err)
		}
	}

	return &claimMapper{
		id:          cfg.ID,
		username:    cfg.Username,
		displayName: cfg.DisplayName,
		tenantID:    cfg.TenantID,
	}, nil
}

// Map builds an Account from raw claims. Missing username falls back to the
// account ID; missing display name falls back to the username.
func (m *claimMapper) Map(raw map[string]any) (*domainauth.Account, error) {
	account := &domainauth.Account{}
	m.Fill(account, raw)
	return account, nil
}

// Fill populates empty Account fields from raw claims, leaving already-set
// fields untouched. Used for the userinfo fallback when the id_token is
// sparse.
func (m *claimMapper) Fill(account *domainauth.Account, raw map[string]any) {
	if account.ID == "" {
		account.ID = evalString(m.id, raw)
	}
	if account.Username == "" {
		account.Username = evalString(m.username, raw)
	}
	if account.DisplayName == "" {
		account.DisplayName = evalString(m.displayName, raw)
	}
	if account.TenantID == "" {
		account.TenantID = evalString(m.tenantID, raw)
	}

	if account.Username == "" {
		account.Username = account.ID
	}
	if account.DisplayName == "" {
		account.DisplayName = account.Username
	}
}

func evalString(expr string, raw map[string]any) string {
	v, err := jmespath.Search(expr, raw)
	if err != nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
