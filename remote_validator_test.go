package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/mortgagematch/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksServer(t *testing.T, key *rsa.PublicKey, kid string) *httptest.Server {
	t.Helper()

	body := fmt.Sprintf(
		`{"keys":[{"kty":"RSA","kid":%q,"use":"sig","alg":"RS256","n":%q,"e":%q}]}`,
		kid,
		base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signHostedToken(t *testing.T, key *rsa.PrivateKey, kid string, claims *auth.JWTClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func hostedClaims(expiresIn time.Duration) *auth.JWTClaims {
	now := time.Now()
	return &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "hosted-backend",
			Subject:   "11111111-2222-3333-4444-555555555555",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		UID:          "11111111-2222-3333-4444-555555555555",
		AccountEmail: "bank@example.com",
		UserRole:     string(auth.RoleBank),
	}
}

func TestJWKSValidatorAcceptsHostedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := jwksServer(t, &key.PublicKey, "hosted-key")

	validator, err := auth.NewJWKSValidator(srv.URL, auth.WithJWKSIssuer("hosted-backend"))
	require.NoError(t, err)
	t.Cleanup(validator.Close)

	claims, err := validator.Validate(signHostedToken(t, key, "hosted-key", hostedClaims(time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, "11111111-2222-3333-4444-555555555555", claims.UserID())
	assert.Equal(t, "bank@example.com", claims.Email())
	assert.Equal(t, string(auth.RoleBank), claims.Role())
}

func TestJWKSValidatorRejectsForeignSignature(t *testing.T) {
	hostedKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	foreignKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := jwksServer(t, &hostedKey.PublicKey, "hosted-key")

	validator, err := auth.NewJWKSValidator(srv.URL)
	require.NoError(t, err)
	t.Cleanup(validator.Close)

	_, err = validator.Validate(signHostedToken(t, foreignKey, "hosted-key", hostedClaims(time.Hour)))
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestJWKSValidatorRejectsExpiredToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := jwksServer(t, &key.PublicKey, "hosted-key")

	validator, err := auth.NewJWKSValidator(srv.URL)
	require.NoError(t, err)
	t.Cleanup(validator.Close)

	_, err = validator.Validate(signHostedToken(t, key, "hosted-key", hostedClaims(-time.Hour)))
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestJWKSValidatorRejectsWrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := jwksServer(t, &key.PublicKey, "hosted-key")

	validator, err := auth.NewJWKSValidator(srv.URL, auth.WithJWKSIssuer("someone-else"))
	require.NoError(t, err)
	t.Cleanup(validator.Close)

	_, err = validator.Validate(signHostedToken(t, key, "hosted-key", hostedClaims(time.Hour)))
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}
