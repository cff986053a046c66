package auth

// IsValid checks if the role is one of the predefined marketplace roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdvisor, RoleBank, RoleAdmin:
		return true
	default:
		return false
	}
}

// RegistrableRoles returns the roles a user may self-select at sign-up.
// Admin accounts are provisioned out of band.
func RegistrableRoles() []Role {
	return []Role{RoleAdvisor, RoleBank}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{RoleAdvisor, RoleBank, RoleAdmin}
}

// ParseRole safely parses a string into a Role, returning RoleUnknown for
// anything outside the predefined set.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	if IsValidRole(role) {
		return role, true
	}
	return RoleUnknown, false
}

// DashboardPath returns the landing path for a role. Unknown roles map to
// the root path so routing never oscillates between error pages.
func DashboardPath(r Role) string {
	switch r {
	case RoleAdvisor:
		return "/advisor/dashboard"
	case RoleBank:
		return "/bank/dashboard"
	case RoleAdmin:
		return "/admin/dashboard"
	default:
		return "/"
	}
}

// ResolveRole picks the effective role from the session claim and the
// fetched profile. The session claim wins on mismatch; the disagreement is
// logged, never fatal, so navigation is not blocked by profile update lag.
func ResolveRole(session Session, profile *Profile, logger Logger) Role {
	if logger == nil {
		logger = defLogger{}
	}

	var claim Role
	hasClaim := false
	if session != nil {
		claim, hasClaim = session.RoleClaim()
	}

	var profileRole Role
	hasProfile := false
	if profile != nil {
		if role, ok := ParseRole(string(profile.Role)); ok {
			profileRole = role
			hasProfile = true
		}
	}

	switch {
	case hasClaim && hasProfile:
		if claim != profileRole {
			logger.Warn(
				"role claim mismatch, preferring session claim",
				"claim", claim,
				"profile_role", profileRole,
				"user_id", session.GetUserID(),
			)
		}
		return claim
	case hasClaim:
		return claim
	case hasProfile:
		return profileRole
	default:
		return RoleUnknown
	}
}
