package auth

// AccessPolicy describes who may see a route.
type AccessPolicy int

const (
	// AccessPublic routes render for everyone, signed in or not.
	AccessPublic AccessPolicy = iota
	// AccessAuthenticated routes render for any signed-in user, with or
	// without a profile.
	AccessAuthenticated
	// AccessRoles routes render only for signed-in users whose resolved
	// role is in the allowed set.
	AccessRoles
)

// RouteRequirement is the declarative access requirement attached to a
// route by the embedding application.
type RouteRequirement struct {
	Policy AccessPolicy
	Roles  []Role
}

// PublicRoute requires nothing.
func PublicRoute() RouteRequirement {
	return RouteRequirement{Policy: AccessPublic}
}

// AuthenticatedRoute requires any signed-in user.
func AuthenticatedRoute() RouteRequirement {
	return RouteRequirement{Policy: AccessAuthenticated}
}

// RoleRoute requires a signed-in user holding one of the given roles.
func RoleRoute(roles ...Role) RouteRequirement {
	return RouteRequirement{Policy: AccessRoles, Roles: roles}
}

func (r RouteRequirement) allowsRole(role Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// GuardAction is the kind of decision the guard reaches for a route.
type GuardAction int

const (
	// GuardRender lets the requested route render.
	GuardRender GuardAction = iota
	// GuardLoading holds the route behind a loading indicator. The guard
	// never redirects while auth state is still resolving.
	GuardLoading
	// GuardRedirect sends the user elsewhere.
	GuardRedirect
)

// GuardDecision is the guard's verdict for a single route evaluation.
type GuardDecision struct {
	Action   GuardAction
	Location string
	// PreservePath marks a login redirect that should remember the route
	// the user originally asked for, so a later sign-in can return there.
	PreservePath bool
}

func renderDecision() GuardDecision {
	return GuardDecision{Action: GuardRender}
}

func loadingDecision() GuardDecision {
	return GuardDecision{Action: GuardLoading}
}

func redirectDecision(location string, preservePath bool) GuardDecision {
	return GuardDecision{Action: GuardRedirect, Location: location, PreservePath: preservePath}
}

// Guard evaluates route requirements against the auth state machine. It is
// stateless beyond its collaborators; every decision is a pure function of
// the current snapshot and the requirement.
type Guard struct {
	machine   *StateMachine
	logger    Logger
	loginPath string
}

// GuardOption customizes guard construction.
type GuardOption func(*Guard)

// WithGuardLogger overrides the default logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithLoginPath overrides where unauthenticated users are sent.
func WithLoginPath(path string) GuardOption {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// NewGuard returns a route guard bound to the given state machine.
func NewGuard(machine *StateMachine, opts ...GuardOption) *Guard {
	g := &Guard{
		machine:   machine,
		logger:    defLogger{},
		loginPath: "/login",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Evaluate decides whether the route may render for the current auth state.
func (g *Guard) Evaluate(requirement RouteRequirement) GuardDecision {
	return EvaluateRoute(g.machine.CurrentSnapshot(), requirement, g.loginPath, g.logger)
}

// EvaluateRoute applies the access policy to a snapshot:
//
//   - Public routes always render.
//   - While status is booting or profile-loading, protected routes show a
//     loading state and never redirect; a late-resolving session must not
//     bounce the user off a page they are entitled to.
//   - Unauthenticated users are sent to the login path with the original
//     route preserved.
//   - Authenticated-only routes render for any signed-in user, profile or
//     not. No-profile and pending-approval users can therefore still reach
//     their recovery pages.
//   - Role-restricted routes are reserved for ready users: a signed-in user
//     who is still no-profile or pending-approval is redirected to root
//     even when their role would match.
//   - At ready, role-restricted routes render when the resolved role is
//     allowed. A wrong role redirects to the user's own dashboard rather
//     than an error page; an unresolvable role falls back to login.
func EvaluateRoute(snapshot Snapshot, requirement RouteRequirement, loginPath string, logger Logger) GuardDecision {
	if logger == nil {
		logger = defLogger{}
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	if requirement.Policy == AccessPublic {
		return renderDecision()
	}

	switch snapshot.Status {
	case StatusBooting, StatusProfileLoading:
		return loadingDecision()
	case StatusUnauthenticated:
		return redirectDecision(loginPath, true)
	}

	if requirement.Policy == AccessAuthenticated {
		return renderDecision()
	}

	// Only a ready user may pass a role check. A no-profile or
	// pending-approval user can hold a resolvable role claim without being
	// entitled to the route yet; they go back to root, where the recovery
	// pages live.
	if snapshot.Status != StatusReady {
		return redirectDecision("/", false)
	}

	role := snapshot.Role
	if requirement.allowsRole(role) {
		return renderDecision()
	}

	if !IsValidRole(role) {
		logger.Warn("role-restricted route requested with unresolved role", "status", snapshot.Status)
		return redirectDecision(loginPath, true)
	}

	logger.Info("redirecting to own dashboard, role not allowed for route", "role", role)
	return redirectDecision(DashboardPath(role), false)
}
