package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNoEmptyString guards against hashing empty passwords
var ErrNoEmptyString = errors.New("string must not be empty")

// ErrMismatchedHashAndPassword is returned on credential failure
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrTooManyLoginAttempts is returned when the cooldown window is active
var ErrTooManyLoginAttempts = errors.New("too many login attempts")

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed.
var ErrTokenMalformed = goerrors.New("authentication token malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is the typed error surfaced to sign-in callers for
// inline display; it never carries backend detail.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrMachineDisposed is returned by operations invoked after Dispose.
var ErrMachineDisposed = goerrors.New("auth state machine disposed", goerrors.CategoryConflict).
	WithTextCode("AUTH_MACHINE_DISPOSED").
	WithCode(goerrors.CodeConflict)

// ErrMachineStarted is returned when Start is invoked twice; the duplicate
// call must not register a second session-change subscription.
var ErrMachineStarted = goerrors.New("auth state machine already started", goerrors.CategoryConflict).
	WithTextCode("AUTH_MACHINE_STARTED").
	WithCode(goerrors.CodeConflict)

// ErrNoActiveSession is returned when a profile refetch is requested while
// signed out.
var ErrNoActiveSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode("NO_ACTIVE_SESSION").
	WithCode(goerrors.CodeUnauthorized)

// IsCredentialError reports whether the error should be shown inline on the
// sign-in form rather than treated as a backend failure.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMismatchedHashAndPassword) || errors.Is(err, ErrIdentityNotFound) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == "INVALID_CREDENTIALS"
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "token expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "token malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
