package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
)

func TestClaimMapper_Defaults(t *testing.T) {
	mapper, err := newClaimMapper(ClaimMappings{})
	require.NoError(t, err)

	account, err := mapper.Map(map[string]any{
		"sub":                "abc-123",
		"preferred_username": "kari@helsevakt.no",
		"name":               "Kari Nordmann",
		"tid":                "helsevakt",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc-123", account.ID)
	assert.Equal(t, "kari@helsevakt.no", account.Username)
	assert.Equal(t, "Kari Nordmann", account.DisplayName)
	assert.Equal(t, "helsevakt", account.TenantID)
}

func TestClaimMapper_UsernameFallbackChain(t *testing.T) {
	mapper, err := newClaimMapper(ClaimMappings{})
	require.NoError(t, err)

	// No preferred_username: upn wins over email per expression order.
	account, err := mapper.Map(map[string]any{
		"sub":   "abc-123",
		"upn":   "kari@ad.helsevakt.no",
		"email": "kari@helsevakt.no",
	})
	require.NoError(t, err)
	assert.Equal(t, "kari@ad.helsevakt.no", account.Username)

	// Only sub: username falls back to the subject.
	account, err = mapper.Map(map[string]any{"sub": "abc-123"})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", account.Username)
	// Display name falls back to the username.
	assert.Equal(t, "abc-123", account.DisplayName)
}

func TestClaimMapper_CustomExpressions(t *testing.T) {
	mapper, err := newClaimMapper(ClaimMappings{
		ID:          "oid",
		Username:    "unique_name",
		DisplayName: "given_name",
		TenantID:    "realm",
	})
	require.NoError(t, err)

	account, err := mapper.Map(map[string]any{
		"oid":         "o-1",
		"unique_name": "ola",
		"given_name":  "Ola",
		"realm":       "kommune",
	})
	require.NoError(t, err)
	assert.Equal(t, "o-1", account.ID)
	assert.Equal(t, "ola", account.Username)
	assert.Equal(t, "Ola", account.DisplayName)
	assert.Equal(t, "kommune", account.TenantID)
}

func TestClaimMapper_InvalidExpression(t *testing.T) {
	_, err := newClaimMapper(ClaimMappings{ID: "]["})
	require.Error(t, err)
}

func TestClaimMapper_FillLeavesSetFieldsUntouched(t *testing.T) {
	mapper, err := newClaimMapper(ClaimMappings{})
	require.NoError(t, err)

	account := &domainauth.Account{ID: "from-id-token"}
	mapper.Fill(account, map[string]any{
		"sub":  "from-userinfo",
		"name": "Kari Nordmann",
	})

	assert.Equal(t, "from-id-token", account.ID)
	assert.Equal(t, "Kari Nordmann", account.DisplayName)
}

func TestClaimMapper_NonStringClaimIgnored(t *testing.T) {
	mapper, err := newClaimMapper(ClaimMappings{})
	require.NoError(t, err)

	account, err := mapper.Map(map[string]any{
		"sub":  "abc-123",
		"name": 42,
	})
	require.NoError(t, err)
	// Non-string display name collapses to the username fallback.
	assert.Equal(t, "abc-123", account.DisplayName)
}
