package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetToken() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
	GetData() map[string]any
	// RoleClaim returns the role embedded in the session token, if any.
	// The state machine prefers this claim over the profile's role.
	RoleClaim() (Role, bool)
}

// ChangeEvent identifies a session-change notification.
type ChangeEvent string

const (
	ChangeEventSignedIn       ChangeEvent = "signed-in"
	ChangeEventSignedOut      ChangeEvent = "signed-out"
	ChangeEventTokenRefreshed ChangeEvent = "token-refreshed"
)

// ChangeHandler receives session-change notifications. The session is nil
// for signed-out events.
type ChangeHandler func(event ChangeEvent, session Session)

// SessionSource is the authentication backend the state machine reconciles
// against: it holds the session token and user identity and notifies
// subscribers of sign-in, sign-out, and token-refresh.
type SessionSource interface {
	// CurrentSession returns the resumable session, or (nil, nil) when
	// signed out. Errors indicate the backend could not be reached.
	CurrentSession(ctx context.Context) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, req SignUpRequest) error
	SignOut(ctx context.Context) error
	// OnChange registers a handler and returns its unsubscribe function.
	OnChange(handler ChangeHandler) (func(), error)
}

// SignUpRequest carries the attributes collected by the registration form.
type SignUpRequest struct {
	Email    string
	Password string
	FullName string
	Role     Role
	Company  string
	Phone    string
}

// ProfileStore fetches the application-level record extending a user
// identity with role and approval status. A missing profile is reported as
// (nil, nil); errors indicate transport failures only.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// IdentityProvider ensures we have a store to verify and retrieve identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService mints and validates session tokens.
type TokenService interface {
	TokenValidator
	Generate(identity Identity) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetBootTimeout() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
