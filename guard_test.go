package auth_test

import (
	"testing"

	auth "github.com/mortgagematch/go-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func snapshotFor(status auth.AuthStatus, role auth.Role) auth.Snapshot {
	snap := auth.Snapshot{Status: status, Role: role}
	if status != auth.StatusUnauthenticated && status != auth.StatusBooting {
		snap.Session = testSession(uuid.New(), role)
	}
	return snap
}

func TestEvaluateRoutePublicAlwaysRenders(t *testing.T) {
	statuses := []auth.AuthStatus{
		auth.StatusBooting,
		auth.StatusUnauthenticated,
		auth.StatusProfileLoading,
		auth.StatusNoProfile,
		auth.StatusPendingApproval,
		auth.StatusReady,
	}

	for _, status := range statuses {
		decision := auth.EvaluateRoute(snapshotFor(status, auth.RoleUnknown), auth.PublicRoute(), "/login", nil)
		assert.Equal(t, auth.GuardRender, decision.Action, "status %s", status)
	}
}

func TestEvaluateRouteNeverRedirectsWhileLoading(t *testing.T) {
	requirements := []auth.RouteRequirement{
		auth.AuthenticatedRoute(),
		auth.RoleRoute(auth.RoleAdvisor),
		auth.RoleRoute(auth.RoleAdmin),
	}

	for _, status := range []auth.AuthStatus{auth.StatusBooting, auth.StatusProfileLoading} {
		for _, req := range requirements {
			decision := auth.EvaluateRoute(snapshotFor(status, auth.RoleUnknown), req, "/login", nil)
			assert.Equal(t, auth.GuardLoading, decision.Action, "status %s", status)
			assert.Empty(t, decision.Location)
		}
	}
}

func TestEvaluateRouteUnauthenticatedRedirectsToLogin(t *testing.T) {
	decision := auth.EvaluateRoute(
		snapshotFor(auth.StatusUnauthenticated, auth.RoleUnknown),
		auth.AuthenticatedRoute(),
		"/login",
		nil,
	)
	assert.Equal(t, auth.GuardRedirect, decision.Action)
	assert.Equal(t, "/login", decision.Location)
	assert.True(t, decision.PreservePath)
}

func TestEvaluateRouteAuthenticatedRendersWithoutProfile(t *testing.T) {
	for _, status := range []auth.AuthStatus{
		auth.StatusNoProfile,
		auth.StatusPendingApproval,
		auth.StatusReady,
	} {
		decision := auth.EvaluateRoute(snapshotFor(status, auth.RoleAdvisor), auth.AuthenticatedRoute(), "/login", nil)
		assert.Equal(t, auth.GuardRender, decision.Action, "status %s", status)
	}
}

func TestEvaluateRouteRoleRouteBeforeReadyRedirectsToRoot(t *testing.T) {
	// A matching role claim does not open role-gated routes while the
	// profile is missing or unapproved.
	for _, status := range []auth.AuthStatus{
		auth.StatusNoProfile,
		auth.StatusPendingApproval,
	} {
		decision := auth.EvaluateRoute(
			snapshotFor(status, auth.RoleBank),
			auth.RoleRoute(auth.RoleBank),
			"/login",
			nil,
		)
		assert.Equal(t, auth.GuardRedirect, decision.Action, "status %s", status)
		assert.Equal(t, "/", decision.Location, "status %s", status)
		assert.False(t, decision.PreservePath, "status %s", status)
	}
}

func TestEvaluateRouteAllowedRoleRenders(t *testing.T) {
	decision := auth.EvaluateRoute(
		snapshotFor(auth.StatusReady, auth.RoleBank),
		auth.RoleRoute(auth.RoleBank, auth.RoleAdmin),
		"/login",
		nil,
	)
	assert.Equal(t, auth.GuardRender, decision.Action)
}

func TestEvaluateRouteWrongRoleRedirectsToOwnDashboard(t *testing.T) {
	decision := auth.EvaluateRoute(
		snapshotFor(auth.StatusReady, auth.RoleAdvisor),
		auth.RoleRoute(auth.RoleBank),
		"/login",
		nil,
	)
	assert.Equal(t, auth.GuardRedirect, decision.Action)
	assert.Equal(t, "/advisor/dashboard", decision.Location)
	assert.False(t, decision.PreservePath)
}

func TestEvaluateRouteUnresolvedRoleFallsBackToLogin(t *testing.T) {
	logger := &captureLogger{}
	decision := auth.EvaluateRoute(
		snapshotFor(auth.StatusReady, auth.RoleUnknown),
		auth.RoleRoute(auth.RoleAdmin),
		"/login",
		logger,
	)
	assert.Equal(t, auth.GuardRedirect, decision.Action)
	assert.Equal(t, "/login", decision.Location)
	assert.True(t, decision.PreservePath)
	assert.True(t, logger.contains("unresolved role"))
}

func TestGuardEvaluateUsesMachineSnapshot(t *testing.T) {
	userID := uuid.New()
	source := newFakeSource()
	source.session = testSession(userID, auth.RoleAdmin)

	store := &fakeProfileStore{}
	store.setFn(staticProfile(testProfile(userID, auth.RoleAdmin, true), nil))

	sm := startedMachine(t, source, store)
	guard := auth.NewGuard(sm, auth.WithLoginPath("/signin"))

	assert.Eventually(t, func() bool {
		decision := guard.Evaluate(auth.RoleRoute(auth.RoleAdmin))
		return decision.Action == auth.GuardRender
	}, waitFor, tick)
}
