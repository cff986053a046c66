package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// AccountRegisterer handles new account registrations for the bundled
// session source.
type AccountRegisterer interface {
	Register(ctx context.Context, req SignUpRequest) error
}

// TokenStore persists the raw session token between runs so a session can
// be resumed on boot. Load returns ("", nil) when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore is a process-lifetime TokenStore.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

var _ TokenStore = (*MemoryTokenStore)(nil)

// CredentialsSessionSource is the bundled SessionSource: it verifies
// credentials through an IdentityProvider, mints session tokens carrying
// the identity's role claim, and notifies subscribers of session changes.
type CredentialsSessionSource struct {
	provider   IdentityProvider
	tokens     TokenService
	validator  TokenValidator
	registerer AccountRegisterer
	store      TokenStore
	logger     Logger

	mu          sync.Mutex
	session     Session
	handlers    map[int]ChangeHandler
	nextHandler int
}

// SessionSourceOption customizes session source construction.
type SessionSourceOption func(*CredentialsSessionSource)

// WithSourceLogger overrides the default logger.
func WithSourceLogger(logger Logger) SessionSourceOption {
	return func(s *CredentialsSessionSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenStore sets the store used to resume sessions across runs.
func WithTokenStore(store TokenStore) SessionSourceOption {
	return func(s *CredentialsSessionSource) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRegisterer sets the handler backing SignUp.
func WithRegisterer(registerer AccountRegisterer) SessionSourceOption {
	return func(s *CredentialsSessionSource) {
		s.registerer = registerer
	}
}

// WithSessionValidator overrides the validator used to resume persisted
// tokens. Defaults to the token service; pass a MultiTokenValidator to also
// accept hosted-backend sessions.
func WithSessionValidator(validator TokenValidator) SessionSourceOption {
	return func(s *CredentialsSessionSource) {
		if validator != nil {
			s.validator = validator
		}
	}
}

// NewCredentialsSessionSource builds the session source around an identity
// provider and a token service.
func NewCredentialsSessionSource(provider IdentityProvider, tokens TokenService, opts ...SessionSourceOption) *CredentialsSessionSource {
	s := &CredentialsSessionSource{
		provider: provider,
		tokens:   tokens,
		store:    &MemoryTokenStore{},
		logger:   defLogger{},
		handlers: map[int]ChangeHandler{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.validator == nil {
		s.validator = tokens
	}

	return s
}

// CurrentSession resumes the persisted session, if any. An expired or
// malformed stored token is treated as signed out, not as a failure.
func (s *CredentialsSessionSource) CurrentSession(ctx context.Context) (Session, error) {
	s.mu.Lock()
	if s.session != nil {
		session := s.session
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()

	token, err := s.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load persisted session token")
	}
	if token == "" {
		return nil, nil
	}

	claims, err := s.validator.Validate(token)
	if err != nil {
		if IsTokenExpiredError(err) || IsMalformedError(err) {
			s.logger.Info("persisted session token no longer valid", "error", err)
			if clearErr := s.store.Clear(ctx); clearErr != nil {
				s.logger.Warn("failed to clear stale session token", "error", clearErr)
			}
			return nil, nil
		}
		return nil, err
	}

	session, err := SessionFromClaims(claims, token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	return session, nil
}

// SignIn verifies credentials, mints a session token, and notifies
// subscribers of the new session.
func (s *CredentialsSessionSource) SignIn(ctx context.Context, email, password string) (Session, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint session token")
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "minted session token failed validation")
	}

	session, err := SessionFromClaims(claims, token)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, token); err != nil {
		s.logger.Warn("failed to persist session token", "error", err)
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.emit(ChangeEventSignedIn, session)
	return session, nil
}

// SignUp registers a new account. No session is established; the caller
// signs in once registration succeeds.
func (s *CredentialsSessionSource) SignUp(ctx context.Context, req SignUpRequest) error {
	if s.registerer == nil {
		return errors.New("session source has no registration handler", errors.CategoryOperation).
			WithTextCode("SIGNUP_UNAVAILABLE")
	}
	return s.registerer.Register(ctx, req)
}

// SignOut drops the session and notifies subscribers.
func (s *CredentialsSessionSource) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear persisted session token", "error", err)
	}

	s.emit(ChangeEventSignedOut, nil)
	return nil
}

// Refresh re-mints the session token for the signed-in identity and emits a
// token-refreshed event. The identity is unchanged; consumers treat this as
// a background update.
func (s *CredentialsSessionSource) Refresh(ctx context.Context) (Session, error) {
	s.mu.Lock()
	current := s.session
	s.mu.Unlock()

	if current == nil {
		return nil, ErrNoActiveSession
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, current.GetUserID())
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mint refreshed session token")
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "refreshed session token failed validation")
	}

	session, err := SessionFromClaims(claims, token)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, token); err != nil {
		s.logger.Warn("failed to persist refreshed session token", "error", err)
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.emit(ChangeEventTokenRefreshed, session)
	return session, nil
}

// OnChange registers a session-change handler and returns its unsubscribe
// function.
func (s *CredentialsSessionSource) OnChange(handler ChangeHandler) (func(), error) {
	if handler == nil {
		return nil, errors.New("change handler must not be nil", errors.CategoryBadInput)
	}

	s.mu.Lock()
	id := s.nextHandler
	s.nextHandler++
	s.handlers[id] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}, nil
}

func (s *CredentialsSessionSource) emit(event ChangeEvent, session Session) {
	s.mu.Lock()
	handlers := make([]ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

var _ SessionSource = (*CredentialsSessionSource)(nil)
