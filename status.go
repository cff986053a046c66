package auth

// AuthStatus is the single discrete value the rest of the application reads.
// Exactly one status holds at any instant; every flag that produces it is
// internal to the state machine.
type AuthStatus string

const (
	// StatusBooting holds from construction until the first session check
	// completes or times out.
	StatusBooting AuthStatus = "booting"
	// StatusUnauthenticated means no session exists.
	StatusUnauthenticated AuthStatus = "unauthenticated"
	// StatusProfileLoading means a session exists and the first profile
	// fetch for its identity has not completed.
	StatusProfileLoading AuthStatus = "profile-loading"
	// StatusNoProfile means the profile fetch completed with no record.
	StatusNoProfile AuthStatus = "no-profile"
	// StatusPendingApproval means a profile exists but is not yet approved.
	StatusPendingApproval AuthStatus = "pending-approval"
	// StatusReady means a profile exists and is approved.
	StatusReady AuthStatus = "ready"
)

// IsTerminal reports whether the status represents a settled resolution for
// the current identity. Background re-fetches for a terminal identity must
// never regress the status to a loading value.
func (s AuthStatus) IsTerminal() bool {
	switch s {
	case StatusReady, StatusPendingApproval, StatusNoProfile, StatusUnauthenticated:
		return true
	default:
		return false
	}
}

// IsLoading reports whether resolution is in flight. Route guards render a
// placeholder and never redirect while loading.
func (s AuthStatus) IsLoading() bool {
	return s == StatusBooting || s == StatusProfileLoading
}

// statusTransitions is the allowed transition graph. Same-status publishes
// are no-ops and always permitted.
var statusTransitions = map[AuthStatus]map[AuthStatus]struct{}{
	StatusBooting: {
		StatusUnauthenticated: {},
		StatusProfileLoading:  {},
	},
	StatusUnauthenticated: {
		StatusProfileLoading: {},
	},
	StatusProfileLoading: {
		StatusReady:           {},
		StatusPendingApproval: {},
		StatusNoProfile:       {},
		StatusUnauthenticated: {},
	},
	StatusNoProfile: {
		StatusReady:           {},
		StatusPendingApproval: {},
		StatusUnauthenticated: {},
	},
	StatusPendingApproval: {
		StatusReady:           {},
		StatusUnauthenticated: {},
	},
	StatusReady: {
		StatusUnauthenticated: {},
		// Only an identity change re-enters loading; a same-identity
		// background refresh never does.
		StatusProfileLoading: {},
	},
}

func canTransitionStatus(from, to AuthStatus) bool {
	if from == to {
		return true
	}
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	_, exists := allowed[to]
	return exists
}
