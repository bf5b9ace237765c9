package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehouse/bookshop/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		Email: "admin@bookshop.dev",
		Name:  "Admin",
		Roles: []string{domain.RoleAdmin, domain.RoleUser},
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)

	token, err := mgr.GenerateToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@bookshop.dev", claims.Email)
	assert.Equal(t, "Admin", claims.Name)
	assert.True(t, claims.HasRole(domain.RoleAdmin))
	assert.False(t, claims.HasRole("ROLE_OTHER"))
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken(testUser())
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).ValidateToken(token)
	require.Error(t, err)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	token, err := NewJWTManager("test-secret", -time.Minute).GenerateToken(testUser())
	require.NoError(t, err)

	_, err = NewJWTManager("test-secret", -time.Minute).ValidateToken(token)
	require.Error(t, err)
}
