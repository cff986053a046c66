package auth

// RootOutcome is the single decision the root route makes from the current
// auth status. The root route is the only place that forwards a signed-in
// user to a dashboard; every other component either renders, waits, or
// defers back here.
type RootOutcome string

const (
	RootShowLoading         RootOutcome = "show-loading"
	RootShowLogin           RootOutcome = "show-login"
	RootShowNoProfile       RootOutcome = "show-no-profile"
	RootShowPendingApproval RootOutcome = "show-pending-approval"
	RootRedirectDashboard   RootOutcome = "redirect-dashboard"
)

// RootDecision pairs the outcome with the dashboard location when the
// outcome is a redirect.
type RootDecision struct {
	Outcome  RootOutcome
	Location string
}

// ResolveRoot maps an auth snapshot to the root route decision:
//
//	booting, profile-loading  -> show-loading
//	unauthenticated           -> show-login
//	no-profile                -> show-no-profile
//	pending-approval          -> show-pending-approval
//	ready                     -> redirect to the role's dashboard
//
// A ready status with an unresolvable role should not happen; rather than
// guess a destination, the decision stays on loading and the condition is
// logged for investigation.
func ResolveRoot(snapshot Snapshot, logger Logger) RootDecision {
	if logger == nil {
		logger = defLogger{}
	}

	switch snapshot.Status {
	case StatusUnauthenticated:
		return RootDecision{Outcome: RootShowLogin}
	case StatusNoProfile:
		return RootDecision{Outcome: RootShowNoProfile}
	case StatusPendingApproval:
		return RootDecision{Outcome: RootShowPendingApproval}
	case StatusReady:
		role := snapshot.Role
		if !IsValidRole(role) {
			logger.Error("ready status with unresolvable role, holding on loading")
			return RootDecision{Outcome: RootShowLoading}
		}
		return RootDecision{Outcome: RootRedirectDashboard, Location: DashboardPath(role)}
	default:
		return RootDecision{Outcome: RootShowLoading}
	}
}

// RootRouter resolves the root route against the live state machine.
type RootRouter struct {
	machine *StateMachine
	logger  Logger
}

// NewRootRouter returns a root router bound to the given state machine.
func NewRootRouter(machine *StateMachine, opts ...RootRouterOption) *RootRouter {
	r := &RootRouter{machine: machine, logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RootRouterOption customizes root router construction.
type RootRouterOption func(*RootRouter)

// WithRootLogger overrides the default logger.
func WithRootLogger(logger Logger) RootRouterOption {
	return func(r *RootRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolve returns the decision for the current auth state.
func (r *RootRouter) Resolve() RootDecision {
	return ResolveRoot(r.machine.CurrentSnapshot(), r.logger)
}
