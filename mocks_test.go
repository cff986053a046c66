package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	auth "github.com/mortgagematch/go-auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func notFoundErr() error {
	return repository.NewRecordNotFound()
}

// fakeSessionSource is a controllable SessionSource: tests configure the
// boot result, drive sign-in/out behavior, and emit change events.
type fakeSessionSource struct {
	mu sync.Mutex

	session    auth.Session
	sessionErr error
	// bootDelay makes CurrentSession block until the context is done.
	bootBlocks bool

	signInFn  func(ctx context.Context, email, password string) (auth.Session, error)
	signUpFn  func(ctx context.Context, req auth.SignUpRequest) error
	signOutFn func(ctx context.Context) error

	handlers      map[int]auth.ChangeHandler
	nextHandler   int
	subscriptions int
}

func newFakeSource() *fakeSessionSource {
	return &fakeSessionSource{handlers: map[int]auth.ChangeHandler{}}
}

func (f *fakeSessionSource) CurrentSession(ctx context.Context) (auth.Session, error) {
	if f.bootBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessionErr
}

func (f *fakeSessionSource) SignIn(ctx context.Context, email, password string) (auth.Session, error) {
	if f.signInFn != nil {
		return f.signInFn(ctx, email, password)
	}
	return nil, auth.ErrMismatchedHashAndPassword
}

func (f *fakeSessionSource) SignUp(ctx context.Context, req auth.SignUpRequest) error {
	if f.signUpFn != nil {
		return f.signUpFn(ctx, req)
	}
	return nil
}

func (f *fakeSessionSource) SignOut(ctx context.Context) error {
	if f.signOutFn != nil {
		return f.signOutFn(ctx)
	}
	return nil
}

func (f *fakeSessionSource) OnChange(handler auth.ChangeHandler) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextHandler
	f.nextHandler++
	f.handlers[id] = handler
	f.subscriptions++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}, nil
}

func (f *fakeSessionSource) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscriptions
}

func (f *fakeSessionSource) activeHandlers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// emit pushes a change event to every registered handler.
func (f *fakeSessionSource) emit(event auth.ChangeEvent, session auth.Session) {
	f.mu.Lock()
	handlers := make([]auth.ChangeHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(event, session)
	}
}

// fakeProfileStore answers profile fetches from a function field so tests
// can swap behavior mid-flight. The optional gate blocks fetches until the
// test releases them.
type fakeProfileStore struct {
	mu   sync.Mutex
	fn   func(ctx context.Context, userID string) (*auth.Profile, error)
	gate chan struct{}
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, userID string) (*auth.Profile, error) {
	f.mu.Lock()
	fn := f.fn
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, userID)
}

func (f *fakeProfileStore) setFn(fn func(ctx context.Context, userID string) (*auth.Profile, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

func staticProfile(p *auth.Profile, err error) func(ctx context.Context, userID string) (*auth.Profile, error) {
	return func(ctx context.Context, userID string) (*auth.Profile, error) {
		return p, err
	}
}

func testSession(userID uuid.UUID, role auth.Role) *auth.SessionObject {
	data := map[string]any{}
	if role != "" {
		data["role"] = string(role)
	}
	now := time.Now()
	exp := now.Add(time.Hour)
	return &auth.SessionObject{
		UserID:         userID.String(),
		Email:          "user@example.com",
		Token:          "test-token",
		IssuedAt:       &now,
		ExpirationDate: &exp,
		Data:           data,
	}
}

func testProfile(userID uuid.UUID, role auth.Role, approved bool) *auth.Profile {
	return &auth.Profile{
		UserID:     userID,
		FullName:   "Test User",
		Role:       role,
		IsApproved: approved,
	}
}

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) byType(t auth.ActivityEventType) []auth.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []auth.ActivityEvent{}
	for _, e := range r.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

// captureLogger records log lines so tests can assert on warnings.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureLogger) log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
}

func (c *captureLogger) Debug(format string, args ...any) { c.log(format) }
func (c *captureLogger) Info(format string, args ...any)  { c.log(format) }
func (c *captureLogger) Warn(format string, args ...any)  { c.log(format) }
func (c *captureLogger) Error(format string, args ...any) { c.log(format) }

func (c *captureLogger) contains(needle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range c.lines {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// MockAccountTracker implements auth.AccountTracker
type MockAccountTracker struct {
	mock.Mock
}

func (m *MockAccountTracker) GetByIdentifier(ctx context.Context, identifier string) (*auth.Account, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountTracker) TrackAttemptedLogin(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountTracker) TrackSuccessfulLogin(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
