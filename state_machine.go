package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultBootTimeout bounds the initial session check. If the backend never
// responds, the machine publishes StatusUnauthenticated at the deadline so
// the UI is never stuck on booting.
var DefaultBootTimeout = 10 * time.Second

// Snapshot is the immutable view handed to subscribers and readers.
type Snapshot struct {
	Status  AuthStatus
	Session Session
	Profile *Profile
	Role    Role
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*StateMachine)

// WithBootTimeout overrides the bound on the initial session check.
func WithBootTimeout(d time.Duration) StateMachineOption {
	return func(sm *StateMachine) {
		if d > 0 {
			sm.bootTimeout = d
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) StateMachineOption {
	return func(sm *StateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger Logger) StateMachineOption {
	return func(sm *StateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish auth events.
func WithActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *StateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// StateMachine reconciles the session source and the profile store into a
// single AuthStatus. It is constructed once per application lifetime,
// started once, and disposed when the application shuts down.
//
// All mutation is serialized under the machine's mutex. Each profile fetch
// is stamped with a sequence number and the identity it was issued for; a
// result is discarded when it has been superseded, when the identity no
// longer matches the current session, or after disposal.
type StateMachine struct {
	source       SessionSource
	profiles     ProfileStore
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	bootTimeout  time.Duration

	mu      sync.Mutex
	status  AuthStatus
	session Session
	profile *Profile
	// resolvedIdentity is the user id whose profile fetch last completed,
	// regardless of outcome. Re-fetches for it never show a loading state.
	resolvedIdentity string
	// pendingIdentity is the user id of the fetch in flight, if any.
	pendingIdentity string
	fetchSeq        uint64
	started         bool
	disposed        bool
	unsubscribe     func()
	subscribers     []func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStateMachine returns an auth state machine in StatusBooting.
func NewStateMachine(source SessionSource, profiles ProfileStore, opts ...StateMachineOption) *StateMachine {
	sm := &StateMachine{
		source:       source,
		profiles:     profiles,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
		bootTimeout:  DefaultBootTimeout,
		status:       StatusBooting,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

// Start registers the single session-change subscription and kicks off the
// initial session check. Calling Start twice returns ErrMachineStarted and
// does not register a duplicate subscription.
func (sm *StateMachine) Start(ctx context.Context) error {
	sm.mu.Lock()
	if sm.disposed {
		sm.mu.Unlock()
		return ErrMachineDisposed
	}
	if sm.started {
		sm.mu.Unlock()
		return ErrMachineStarted
	}
	sm.started = true
	sm.ctx, sm.cancel = context.WithCancel(ctx)
	sm.mu.Unlock()

	unsubscribe, err := sm.source.OnChange(sm.handleChange)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to subscribe to session changes")
	}

	sm.mu.Lock()
	if sm.disposed {
		sm.mu.Unlock()
		unsubscribe()
		return ErrMachineDisposed
	}
	sm.unsubscribe = unsubscribe
	sm.mu.Unlock()

	go sm.boot()

	return nil
}

// Dispose tears the machine down: it drops the session-change subscription
// and prevents any in-flight fetch from applying further state updates.
func (sm *StateMachine) Dispose() {
	sm.mu.Lock()
	if sm.disposed {
		sm.mu.Unlock()
		return
	}
	sm.disposed = true
	sm.fetchSeq++
	unsubscribe := sm.unsubscribe
	sm.unsubscribe = nil
	cancel := sm.cancel
	sm.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

// Status returns the current derived status.
func (sm *StateMachine) Status() AuthStatus {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.status
}

// CurrentSession returns the cached session, nil when signed out.
func (sm *StateMachine) CurrentSession() Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.session
}

// CurrentProfile returns the last confirmed profile for the current
// identity, nil if none has been fetched.
func (sm *StateMachine) CurrentProfile() *Profile {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.profile
}

// CurrentRole resolves the effective role, preferring the session claim.
func (sm *StateMachine) CurrentRole() Role {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return ResolveRole(sm.session, sm.profile, sm.logger)
}

// CurrentSnapshot returns a consistent view of status, session, profile,
// and role.
func (sm *StateMachine) CurrentSnapshot() Snapshot {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.snapshotLocked()
}

// Subscribe registers a listener invoked after every published change.
// Returns an unsubscribe function.
func (sm *StateMachine) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	sm.mu.Lock()
	sm.subscribers = append(sm.subscribers, fn)
	idx := len(sm.subscribers) - 1
	sm.mu.Unlock()

	return func() {
		sm.mu.Lock()
		if idx < len(sm.subscribers) {
			sm.subscribers[idx] = nil
		}
		sm.mu.Unlock()
	}
}

// SignIn authenticates against the session source. Failures are returned as
// typed errors for inline display; they never change the published status
// of an existing session.
func (sm *StateMachine) SignIn(ctx context.Context, email, password string) error {
	if sm.isDisposed() {
		return ErrMachineDisposed
	}

	session, err := sm.source.SignIn(ctx, email, password)
	if err != nil {
		sm.recordActivity(ActivityEvent{
			EventType: ActivityEventSignInFailure,
			Actor:     ActorRef{Type: "unknown"},
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		if IsCredentialError(err) {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryAuth, "sign in failed").
			WithCode(goerrors.CodeUnauthorized)
	}

	sm.recordActivity(ActivityEvent{
		EventType: ActivityEventSignInSuccess,
		Actor:     ActorRef{ID: session.GetUserID(), Type: "user"},
		UserID:    session.GetUserID(),
	})

	// The source also emits a signed-in event; applySession is idempotent
	// for an identity that is already pending or resolved.
	sm.applySession(session)
	return nil
}

// SignUp registers a new account. It does not establish a session; the
// caller signs in afterwards (or the backend does, emitting a change event).
func (sm *StateMachine) SignUp(ctx context.Context, req SignUpRequest) error {
	if sm.isDisposed() {
		return ErrMachineDisposed
	}

	if err := sm.source.SignUp(ctx, req); err != nil {
		sm.recordActivity(ActivityEvent{
			EventType: ActivityEventSignUpFailure,
			Actor:     ActorRef{Type: "unknown"},
			Metadata:  map[string]any{"email": req.Email, "error": err.Error()},
		})
		return err
	}

	sm.recordActivity(ActivityEvent{
		EventType: ActivityEventSignUpSuccess,
		Actor:     ActorRef{Type: "user"},
		Metadata:  map[string]any{"email": req.Email, "role": req.Role},
	})
	return nil
}

// SignOut terminates the session. The machine publishes unauthenticated
// immediately; a failure to notify the backend is logged, not surfaced.
func (sm *StateMachine) SignOut(ctx context.Context) error {
	if sm.isDisposed() {
		return ErrMachineDisposed
	}

	var userID string
	if s := sm.CurrentSession(); s != nil {
		userID = s.GetUserID()
	}

	if err := sm.source.SignOut(ctx); err != nil {
		sm.logger.Warn("sign out backend call failed", "error", err)
	}

	sm.recordActivity(ActivityEvent{
		EventType: ActivityEventSignOut,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
	})

	sm.applySignedOut()
	return nil
}

// RefetchProfile re-fetches the profile for the current identity. It is the
// recovery path from no-profile and the manual re-approval check from
// pending-approval; the visible status never regresses to loading.
func (sm *StateMachine) RefetchProfile(ctx context.Context) error {
	sm.mu.Lock()
	if sm.disposed {
		sm.mu.Unlock()
		return ErrMachineDisposed
	}
	if sm.session == nil {
		sm.mu.Unlock()
		return ErrNoActiveSession
	}
	identity := sm.session.GetUserID()
	seq := sm.nextFetchLocked(identity)
	sm.mu.Unlock()

	sm.fetchProfile(ctx, seq, identity)
	return nil
}

// boot performs the initial session check with a bounded deadline.
func (sm *StateMachine) boot() {
	ctx, cancel := context.WithTimeout(sm.ctx, sm.bootTimeout)
	defer cancel()

	type result struct {
		session Session
		err     error
	}

	done := make(chan result, 1)
	go func() {
		session, err := sm.source.CurrentSession(ctx)
		done <- result{session: session, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.Canceled) {
				sm.logger.Info("initial session check cancelled, defaulting to unauthenticated", "error", res.err)
			} else {
				sm.logger.Warn("initial session check failed, defaulting to unauthenticated", "error", res.err)
			}
			sm.applySignedOut()
			return
		}
		if res.session == nil {
			sm.applySignedOut()
			return
		}
		sm.applySession(res.session)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			// Parent context cancelled, typically by Dispose.
			sm.logger.Info("initial session check cancelled, defaulting to unauthenticated", "error", ctx.Err())
		} else {
			sm.logger.Warn("initial session check timed out, defaulting to unauthenticated", "timeout", sm.bootTimeout)
		}
		sm.applySignedOut()
	}
}

// handleChange is the single session-change subscription handler.
func (sm *StateMachine) handleChange(event ChangeEvent, session Session) {
	if event == ChangeEventSignedOut || session == nil {
		sm.applySignedOut()
		return
	}
	sm.applySession(session)
}

// applySession reconciles a present session with the held state. For a new
// identity (or the first fetch for the current one) it publishes
// profile-loading and starts a fetch; for an already-resolved identity it
// refreshes the session and re-fetches in the background without touching
// the visible status.
func (sm *StateMachine) applySession(session Session) {
	identity := session.GetUserID()

	sm.mu.Lock()
	if sm.disposed {
		sm.mu.Unlock()
		return
	}

	sm.session = session

	if sm.resolvedIdentity == identity && sm.status.IsTerminal() {
		// Same identity, already resolved: background refresh only.
		seq := sm.nextFetchLocked(identity)
		sm.mu.Unlock()
		go sm.fetchProfile(sm.ctx, seq, identity)
		return
	}

	if sm.pendingIdentity == identity && sm.status == StatusProfileLoading {
		// A fetch for this identity is already in flight.
		sm.mu.Unlock()
		return
	}

	// New identity: any previously held profile is stale.
	if sm.resolvedIdentity != identity {
		sm.profile = nil
		sm.resolvedIdentity = ""
	}
	notify := sm.setStatusLocked(StatusProfileLoading)
	seq := sm.nextFetchLocked(identity)
	sm.mu.Unlock()
	notify()

	go sm.fetchProfile(sm.ctx, seq, identity)
}

func (sm *StateMachine) applySignedOut() {
	sm.mu.Lock()
	if sm.disposed {
		sm.mu.Unlock()
		return
	}
	sm.session = nil
	sm.profile = nil
	sm.resolvedIdentity = ""
	sm.pendingIdentity = ""
	sm.fetchSeq++ // supersede any in-flight fetch
	notify := sm.setStatusLocked(StatusUnauthenticated)
	sm.mu.Unlock()
	notify()
}

// nextFetchLocked stamps a new fetch for the given identity and returns its
// sequence number. Callers must hold the mutex.
func (sm *StateMachine) nextFetchLocked(identity string) uint64 {
	sm.fetchSeq++
	sm.pendingIdentity = identity
	return sm.fetchSeq
}

func (sm *StateMachine) fetchProfile(ctx context.Context, seq uint64, identity string) {
	if ctx == nil {
		ctx = context.Background()
	}
	profile, err := sm.profiles.GetProfile(ctx, identity)
	sm.applyFetchResult(seq, identity, profile, err)
}

// applyFetchResult folds a completed profile fetch into the machine state.
// Stale, superseded, and identity-mismatched results are discarded.
func (sm *StateMachine) applyFetchResult(seq uint64, identity string, profile *Profile, fetchErr error) {
	sm.mu.Lock()

	if sm.disposed || seq != sm.fetchSeq {
		sm.mu.Unlock()
		return
	}
	if sm.session == nil || sm.session.GetUserID() != identity {
		// Session changed while the fetch was in flight.
		sm.mu.Unlock()
		return
	}

	sm.pendingIdentity = ""

	if fetchErr != nil {
		// A failed refresh is not evidence of absence: keep the last known
		// good profile and status when we already resolved this identity.
		if sm.profile != nil && sm.profile.BelongsTo(identity) {
			sm.mu.Unlock()
			sm.logger.Warn("profile refresh failed, keeping last known profile", "user_id", identity, "error", fetchErr)
			sm.recordActivity(ActivityEvent{
				EventType: ActivityEventProfileRefreshFail,
				UserID:    identity,
				Metadata:  map[string]any{"error": fetchErr.Error()},
			})
			return
		}
		sm.resolvedIdentity = identity
		notify := sm.setStatusLocked(StatusNoProfile)
		sm.mu.Unlock()
		sm.logger.Warn("profile fetch failed with no prior profile", "user_id", identity, "error", fetchErr)
		notify()
		return
	}

	if profile == nil {
		if sm.profile != nil && sm.profile.BelongsTo(identity) {
			// A resolved profile vanishing mid-session is not a transition
			// the status graph names; keep the held profile and flag it.
			sm.mu.Unlock()
			sm.logger.Warn("profile refresh returned no record, keeping last known profile", "user_id", identity)
			return
		}
		sm.resolvedIdentity = identity
		notify := sm.setStatusLocked(StatusNoProfile)
		sm.mu.Unlock()
		notify()
		return
	}

	if !profile.BelongsTo(identity) {
		// Never present a profile belonging to a stale identity.
		sm.mu.Unlock()
		sm.logger.Error("discarding profile for mismatched identity", "session_user", identity, "profile_user", profile.UserID)
		return
	}

	if claim, ok := sm.session.RoleClaim(); ok && claim != profile.Role {
		sm.logger.Warn("session role claim disagrees with profile", "claim", claim, "profile_role", profile.Role, "user_id", identity)
		sm.recordActivity(ActivityEvent{
			EventType: ActivityEventRoleClaimMismatch,
			UserID:    identity,
			Metadata:  map[string]any{"claim": claim, "profile_role": profile.Role},
		})
	}

	sm.profile = profile
	sm.resolvedIdentity = identity

	target := StatusPendingApproval
	if profile.IsApproved {
		target = StatusReady
	}
	notify := sm.setStatusLocked(target)
	sm.mu.Unlock()
	notify()
}

// setStatusLocked validates and applies a status transition, returning the
// subscriber notification to run after the mutex is released. Callers must
// hold the mutex.
func (sm *StateMachine) setStatusLocked(target AuthStatus) func() {
	from := sm.status
	if from == target {
		return func() {}
	}

	if !canTransitionStatus(from, target) {
		sm.logger.Error("rejecting invalid status transition", "from", from, "to", target)
		return func() {}
	}

	sm.status = target
	snapshot := sm.snapshotLocked()

	subscribers := make([]func(Snapshot), 0, len(sm.subscribers))
	for _, fn := range sm.subscribers {
		if fn != nil {
			subscribers = append(subscribers, fn)
		}
	}

	return func() {
		sm.recordActivity(ActivityEvent{
			EventType:  ActivityEventStatusChanged,
			UserID:     snapshotUserID(snapshot),
			FromStatus: from,
			ToStatus:   target,
		})
		for _, fn := range subscribers {
			fn(snapshot)
		}
	}
}

func (sm *StateMachine) snapshotLocked() Snapshot {
	return Snapshot{
		Status:  sm.status,
		Session: sm.session,
		Profile: sm.profile,
		Role:    ResolveRole(sm.session, sm.profile, sm.logger),
	}
}

func (sm *StateMachine) isDisposed() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.disposed
}

func (sm *StateMachine) recordActivity(event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(context.Background(), event); err != nil {
		sm.logger.Warn("activity sink record error: %v", err)
	}
}

func snapshotUserID(s Snapshot) string {
	if s.Session == nil {
		return ""
	}
	return s.Session.GetUserID()
}
