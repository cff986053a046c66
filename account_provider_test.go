package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/mortgagematch/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func hashedAccount(t *testing.T, email, password string, role auth.Role) *auth.Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	account := &auth.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
	}
	account.AddMetadata("role", string(role))
	return account
}

func TestAccountProviderVerifyIdentity(t *testing.T) {
	account := hashedAccount(t, "advisor@example.com", "correct-password", auth.RoleAdvisor)

	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, account.Email).Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", mock.Anything, account).Return(nil).Once()

	provider := auth.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), account.Email, "correct-password")
	require.NoError(t, err)

	assert.Equal(t, account.ID.String(), identity.ID())
	assert.Equal(t, account.Email, identity.Email())
	assert.Equal(t, string(auth.RoleAdvisor), identity.Role())
	store.AssertExpectations(t)
}

func TestAccountProviderWrongPasswordTracksAttempt(t *testing.T) {
	account := hashedAccount(t, "advisor@example.com", "correct-password", auth.RoleAdvisor)

	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, account.Email).Return(account, nil).Once()
	store.On("TrackAttemptedLogin", mock.Anything, account).Return(nil).Once()

	provider := auth.NewAccountProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), account.Email, "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	store.AssertExpectations(t)
}

func TestAccountProviderUnknownAccountReadsAsCredentialFailure(t *testing.T) {
	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, "nobody@example.com").
		Return(nil, notFoundErr()).Once()

	provider := auth.NewAccountProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "nobody@example.com", "password")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
}

func TestAccountProviderCooldownBlocksLogin(t *testing.T) {
	account := hashedAccount(t, "advisor@example.com", "correct-password", auth.RoleAdvisor)
	recent := time.Now().Add(-time.Minute)
	account.LoginAttempts = auth.MaxLoginAttempts + 1
	account.LoginAttemptAt = &recent

	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, account.Email).Return(account, nil).Once()

	provider := auth.NewAccountProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), account.Email, "correct-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)
	store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
}

func TestAccountProviderCooldownExpiresAttemptsReset(t *testing.T) {
	account := hashedAccount(t, "advisor@example.com", "correct-password", auth.RoleAdvisor)
	old := time.Now().Add(-48 * time.Hour)
	account.LoginAttempts = auth.MaxLoginAttempts + 1
	account.LoginAttemptAt = &old

	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, account.Email).Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", mock.Anything, account).Return(nil).Once()

	provider := auth.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), account.Email, "correct-password")
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), identity.ID())
}

func TestAccountProviderRoleFallsBackToUnknown(t *testing.T) {
	hash, err := auth.HashPassword("correct-password")
	require.NoError(t, err)

	account := &auth.Account{
		ID:           uuid.New(),
		Email:        "norole@example.com",
		PasswordHash: hash,
	}

	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, account.Email).Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", mock.Anything, account).Return(nil).Once()

	provider := auth.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), account.Email, "correct-password")
	require.NoError(t, err)
	assert.Equal(t, string(auth.RoleUnknown), identity.Role())
}

func TestAccountProviderFindIdentityByIdentifier(t *testing.T) {
	account := hashedAccount(t, "bank@example.com", "correct-password", auth.RoleBank)

	store := &MockAccountTracker{}
	store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil).Once()

	provider := auth.NewAccountProvider(store)

	identity, err := provider.FindIdentityByIdentifier(context.Background(), account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(auth.RoleBank), identity.Role())
}
