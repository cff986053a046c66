package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the marketplace role attached to a profile
type Role = string

const (
	// RoleAdvisor submits mortgage cases on behalf of clients
	RoleAdvisor Role = "advisor"
	// RoleBank reviews cases for a financial institution
	RoleBank Role = "bank"
	// RoleAdmin manages approvals and platform configuration
	RoleAdmin Role = "admin"
	// RoleUnknown is the defensive default when no role can be resolved
	RoleUnknown Role = "unknown"
)

// Profile extends a user identity with role and approval status. Profiles
// are provisioned server-side at registration and mutated only by
// administrative action; the client treats them as read-mostly.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	UserID        uuid.UUID  `bun:"user_id,pk,nullzero,type:uuid" json:"user_id,omitempty"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	Company       string     `bun:"company" json:"company,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Role          Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	IsApproved    bool       `bun:"is_approved,notnull,default:false" json:"is_approved"`
	ApprovedAt    *time.Time `bun:"approved_at,nullzero" json:"approved_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// BelongsTo reports whether the profile matches the given user identity.
// The state machine must never publish a profile that fails this check.
func (p *Profile) BelongsTo(userID string) bool {
	if p == nil {
		return false
	}
	return p.UserID.String() == userID
}

// Account is the credential record backing the bundled session source.
// Display attributes live in Profile; the account carries only what sign-in
// needs. Metadata mirrors the attributes captured at registration, including
// the role claim stamped into session tokens.
type Account struct {
	bun.BaseModel  `bun:"table:accounts,alias:acc"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (a *Account) AddMetadata(key string, val any) *Account {
	if a.Metadata == nil {
		a.Metadata = make(map[string]any)
	}
	a.Metadata[key] = val
	return a
}

// RoleClaim returns the role captured at registration, if present.
func (a *Account) RoleClaim() (Role, bool) {
	if a == nil || a.Metadata == nil {
		return RoleUnknown, false
	}
	raw, exists := a.Metadata["role"]
	if !exists {
		return RoleUnknown, false
	}
	if s, ok := raw.(string); ok {
		return ParseRole(s)
	}
	return RoleUnknown, false
}
