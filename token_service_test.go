package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/mortgagematch/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIdentity struct {
	id    string
	email string
	role  string
}

func (i testIdentity) ID() string    { return i.id }
func (i testIdentity) Email() string { return i.email }
func (i testIdentity) Role() string  { return i.role }

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	ts := auth.NewTokenService([]byte("test-signing-key"), 1, "mortgagematch", nil, nil)

	identity := testIdentity{
		id:    "11111111-2222-3333-4444-555555555555",
		email: "advisor@example.com",
		role:  string(auth.RoleAdvisor),
	}

	token, err := ts.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, identity.email, claims.Email())
	assert.Equal(t, identity.role, claims.Role())
	assert.True(t, claims.Expires().After(time.Now()))
}

func TestTokenServiceRejectsWrongKey(t *testing.T) {
	mint := auth.NewTokenService([]byte("key-one"), 1, "mortgagematch", nil, nil)
	verify := auth.NewTokenService([]byte("key-two"), 1, "mortgagematch", nil, nil)

	token, err := mint.Generate(testIdentity{id: "abc", email: "a@b.co", role: "bank"})
	require.NoError(t, err)

	_, err = verify.Validate(token)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	ts := auth.NewTokenService([]byte("test-signing-key"), -1, "mortgagematch", nil, nil)

	token, err := ts.Generate(testIdentity{id: "abc", email: "a@b.co", role: "bank"})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenServiceEnforcesIssuer(t *testing.T) {
	mint := auth.NewTokenService([]byte("test-signing-key"), 1, "other-issuer", nil, nil)
	verify := auth.NewTokenService([]byte("test-signing-key"), 1, "mortgagematch", nil, nil)

	token, err := mint.Generate(testIdentity{id: "abc", email: "a@b.co", role: "bank"})
	require.NoError(t, err)

	_, err = verify.Validate(token)
	require.Error(t, err)
}

func TestTokenServiceDecoratorExtendsMetadata(t *testing.T) {
	decorator := auth.ClaimsDecoratorFunc(func(ctx context.Context, identity auth.Identity, claims *auth.JWTClaims) error {
		if claims.Metadata == nil {
			claims.Metadata = map[string]any{}
		}
		claims.Metadata["tenant"] = "acme"
		return nil
	})

	ts := auth.NewTokenService([]byte("test-signing-key"), 1, "mortgagematch", nil, nil,
		auth.WithClaimsDecorator(decorator),
	)

	token, err := ts.Generate(testIdentity{id: "abc", email: "a@b.co", role: "advisor"})
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	jwtClaims, ok := claims.(*auth.JWTClaims)
	require.True(t, ok)
	assert.Equal(t, "acme", jwtClaims.Metadata["tenant"])
}

func TestTokenServiceDecoratorCannotMutateIdentityClaims(t *testing.T) {
	decorator := auth.ClaimsDecoratorFunc(func(ctx context.Context, identity auth.Identity, claims *auth.JWTClaims) error {
		claims.UID = "someone-else"
		return nil
	})

	ts := auth.NewTokenService([]byte("test-signing-key"), 1, "mortgagematch", nil, nil,
		auth.WithClaimsDecorator(decorator),
	)

	_, err := ts.Generate(testIdentity{id: "abc", email: "a@b.co", role: "advisor"})
	require.Error(t, err)
}

func TestMultiTokenValidatorFallsThroughOnMalformed(t *testing.T) {
	rejecting := auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		return nil, auth.ErrTokenMalformed
	})

	accepted := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"},
		UID:              "abc",
	}
	accepting := auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		return accepted, nil
	})

	validator := auth.NewMultiTokenValidator(rejecting, accepting)

	claims, err := validator.Validate("anything")
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.UserID())
}

func TestMultiTokenValidatorStopsOnHardFailure(t *testing.T) {
	expired := auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		return nil, auth.ErrTokenExpired
	})
	neverReached := auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		t.Fatal("second validator should not run after a non-malformed failure")
		return nil, nil
	})

	validator := auth.NewMultiTokenValidator(expired, neverReached)

	_, err := validator.Validate("anything")
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
}
