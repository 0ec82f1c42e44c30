package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

func testManager(secret string) *TokenManager {
	return NewTokenManager(config.AuthConfig{
		JWTSecret:             secret,
		AccessTokenTTLMinutes: 15,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	manager := testManager("test-secret")

	raw, err := manager.Issue("staff-1", domain.RoleStaff, domain.DepartmentFinance, "Asha")
	require.NoError(t, err)

	claims, err := manager.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, domain.RoleStaff, claims.Role)
	assert.Equal(t, domain.DepartmentFinance, claims.Department)
	assert.Equal(t, "Asha", claims.Name)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := testManager("secret-a").Issue("user-1", domain.RoleUser, "", "Dee")
	require.NoError(t, err)

	_, err = testManager("secret-b").Parse(raw)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testManager("test-secret").Parse("not.a.token")
	assert.Error(t, err)
}
