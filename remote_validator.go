package auth

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// JWKSValidator validates session tokens issued by a hosted authentication
// backend, resolving signing keys from the backend's JWKS endpoint. Use it
// with MultiTokenValidator when the client must accept sessions it did not
// mint itself.
type JWKSValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
	logger   Logger
}

// JWKSValidatorOption customizes validator construction.
type JWKSValidatorOption func(*JWKSValidator)

// WithJWKSIssuer enforces the iss claim on validated tokens.
func WithJWKSIssuer(issuer string) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		v.issuer = issuer
	}
}

// WithJWKSAudience enforces the aud claim on validated tokens.
func WithJWKSAudience(audience ...string) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		v.audience = audience
	}
}

// WithJWKSLogger overrides the logger used for refresh failures.
func WithJWKSLogger(logger Logger) JWKSValidatorOption {
	return func(v *JWKSValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewJWKSValidator fetches the key set from jwksURL and keeps it refreshed
// in the background for the lifetime of the validator.
func NewJWKSValidator(jwksURL string, opts ...JWKSValidatorOption) (*JWKSValidator, error) {
	v := &JWKSValidator{logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.logger.Warn("JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to fetch JWKS").
			WithMetadata(map[string]any{"url": jwksURL})
	}

	v.jwks = jwks
	return v, nil
}

// Validate satisfies the TokenValidator interface.
func (v *JWKSValidator) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, v.jwks.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrUnableToDecodeSession
}

// Close stops the background key refresh.
func (v *JWKSValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
