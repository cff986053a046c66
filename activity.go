package auth

import (
	"context"
	"time"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventStatusChanged      ActivityEventType = "auth.status.changed"
	ActivityEventSignInSuccess      ActivityEventType = "auth.signin.success"
	ActivityEventSignInFailure      ActivityEventType = "auth.signin.failure"
	ActivityEventSignUpSuccess      ActivityEventType = "auth.signup.success"
	ActivityEventSignUpFailure      ActivityEventType = "auth.signup.failure"
	ActivityEventSignOut            ActivityEventType = "auth.signout"
	ActivityEventProfileRefreshFail ActivityEventType = "auth.profile.refresh_failure"
	ActivityEventRoleClaimMismatch  ActivityEventType = "auth.role.claim_mismatch"
	ActivityEventProfileApproved    ActivityEventType = "profile.approved"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus AuthStatus
	ToStatus   AuthStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated, so auditing
// cannot block authentication.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
