package auth_test

import (
	"testing"

	auth "github.com/mortgagematch/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProfileBelongsTo(t *testing.T) {
	userID := uuid.New()
	profile := testProfile(userID, auth.RoleAdvisor, true)

	assert.True(t, profile.BelongsTo(userID.String()))
	assert.False(t, profile.BelongsTo(uuid.NewString()))
	assert.False(t, (*auth.Profile)(nil).BelongsTo(userID.String()))
}

func TestAccountAddMetadata(t *testing.T) {
	account := &auth.Account{}
	account.AddMetadata("role", "advisor").AddMetadata("source", "signup-form")

	assert.Equal(t, "advisor", account.Metadata["role"])
	assert.Equal(t, "signup-form", account.Metadata["source"])
}

func TestAccountRoleClaim(t *testing.T) {
	account := &auth.Account{}
	role, ok := account.RoleClaim()
	assert.False(t, ok)
	assert.Equal(t, auth.RoleUnknown, role)

	account.AddMetadata("role", "bank")
	role, ok = account.RoleClaim()
	assert.True(t, ok)
	assert.Equal(t, auth.RoleBank, role)

	account.AddMetadata("role", "superuser")
	role, ok = account.RoleClaim()
	assert.False(t, ok)
	assert.Equal(t, auth.RoleUnknown, role)

	account.AddMetadata("role", 42)
	_, ok = account.RoleClaim()
	assert.False(t, ok)
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, auth.IsCredentialError(auth.ErrMismatchedHashAndPassword))
	assert.True(t, auth.IsCredentialError(auth.ErrIdentityNotFound))
	assert.True(t, auth.IsCredentialError(auth.ErrInvalidCredentials))
	assert.False(t, auth.IsCredentialError(auth.ErrTokenExpired))
	assert.False(t, auth.IsCredentialError(nil))

	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.False(t, auth.IsTokenExpiredError(nil))

	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.False(t, auth.IsMalformedError(auth.ErrTokenExpired))
}
