// Package auth provides the session/profile resolution core for the
// mortgage-matching marketplace client: a single long-lived state machine
// that reconciles an external session source with the profile store, plus
// the route guard and root router that consume its derived status.
//
// Auth status:
//   - AuthStatus is the only thing other components read. It is a tagged
//     value (booting, unauthenticated, profile-loading, no-profile,
//     pending-approval, ready) published by StateMachine; the loading flags,
//     nullable session, and nullable profile that produce it stay internal
//     to the transition logic.
//   - StateMachine owns the single subscription to session-change events,
//     stamps every profile fetch with the identity it was issued for, and
//     discards superseded or mismatched results so a stale identity can
//     never be presented.
//
// Routing:
//   - EvaluateRoute and ResolveRoot are pure decision functions. Guard and
//     RootRouter bind them to the live machine, and RouteAuthenticator
//     adapts their decisions to go-router handlers; together they are the
//     only holders of redirect authority.
//
// Collaborators:
//   - SessionSource and ProfileStore are the abstract backend contracts.
//     CredentialsSessionSource is a bundled implementation backed by the
//     accounts repository, bcrypt, and the JWT token service; JWKSValidator
//     accepts sessions minted by a hosted backend instead.
package auth
