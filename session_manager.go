package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultRefreshInterval = 10 * time.Minute
	DefaultStepTimeout     = 10 * time.Second

	clearedTokenMemory = 16
)

// SessionState is the lifecycle state of a SessionManager.
type SessionState string

const (
	StateUninitialized   SessionState = "uninitialized"
	StateLoading         SessionState = "loading"
	StateAuthenticated   SessionState = "authenticated"
	StateUnauthenticated SessionState = "unauthenticated"
)

// SessionSnapshot is the observable state of a SessionManager.
// Session is non nil only when State is StateAuthenticated.
type SessionSnapshot struct {
	State   SessionState
	Session *Session
	// Err holds the translated error of the last failed transition.
	Err error
}

// Loading reports whether an operation is in flight.
func (s SessionSnapshot) Loading() bool {
	return s.State == StateLoading || s.State == StateUninitialized
}

// Identity returns the identity of the current session, if any.
func (s SessionSnapshot) Identity() *Identity {
	if s.Session == nil {
		return nil
	}
	id := s.Session.Identity
	return &id
}

// SessionObserver is notified after every state or session change.
// Observers run synchronously and must not call mutating methods.
type SessionObserver func(SessionSnapshot)

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithClock sets the clock driving the refresh loop.
func WithClock(clock clockwork.Clock) SessionManagerOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		m.logger = normalizeLogger(logger)
	}
}

// WithRefreshInterval sets the proactive refresh period.
func WithRefreshInterval(d time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.refreshInterval = d
		}
	}
}

// WithStepTimeout bounds every backend call made by the manager.
func WithStepTimeout(d time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.stepTimeout = d
		}
	}
}

// WithTranslator sets the translator used for surfaced errors.
func WithTranslator(t *AuthErrorTranslator) SessionManagerOption {
	return func(m *SessionManager) {
		if t != nil {
			m.translator = t
		}
	}
}

// WithSessionConfig applies the refresh interval, step timeout and locale of cfg.
func WithSessionConfig(cfg Config) SessionManagerOption {
	return func(m *SessionManager) {
		if cfg == nil {
			return
		}
		WithRefreshInterval(cfg.GetRefreshInterval())(m)
		WithStepTimeout(cfg.GetStepTimeout())(m)
		m.translator = NewAuthErrorTranslator(cfg.GetLocale())
	}
}

// SessionManager owns the current authenticated session. All mutations,
// including backend notifications and refresh ticks, are serialized.
type SessionManager struct {
	backend         SessionBackend
	translator      *AuthErrorTranslator
	clock           clockwork.Clock
	logger          Logger
	refreshInterval time.Duration
	stepTimeout     time.Duration

	// opMu serializes every state transition.
	opMu sync.Mutex

	mu           sync.RWMutex
	state        SessionState
	session      *Session
	lastErr      error
	observers    map[int]SessionObserver
	nextObserver int
	cleared      []string
	started      bool
	closed       bool
	unsubscribe  func()

	eventsMu sync.Mutex
	pending  []SessionEvent
	wake     chan struct{}

	loopCtx    context.Context
	loopCancel context.CancelFunc
	stopCh     chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// NewSessionManager creates a manager in StateUninitialized.
func NewSessionManager(backend SessionBackend, opts ...SessionManagerOption) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		backend:         backend,
		translator:      NewAuthErrorTranslator(""),
		clock:           clockwork.NewRealClock(),
		logger:          defLogger{},
		refreshInterval: DefaultRefreshInterval,
		stepTimeout:     DefaultStepTimeout,
		state:           StateUninitialized,
		observers:       map[int]SessionObserver{},
		wake:            make(chan struct{}, 1),
		loopCtx:         ctx,
		loopCancel:      cancel,
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Initialize resolves the persisted session, subscribes to backend
// notifications and starts the refresh loop. Subsequent calls are no-ops.
func (m *SessionManager) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed.Clone()
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.unsubscribe = m.backend.Subscribe(m.enqueue)
	go m.loop()
	m.mu.Unlock()

	m.transition(StateLoading, nil, nil)

	session, err := m.resolvePersisted(ctx)
	if err != nil {
		terr := m.translator.AsError(err)
		m.logger.Warn("session manager could not restore session: %v", err)
		m.transition(StateUnauthenticated, nil, terr)
		return terr
	}

	if session == nil {
		m.transition(StateUnauthenticated, nil, nil)
		return nil
	}

	m.transition(StateAuthenticated, session, nil)
	return nil
}

func (m *SessionManager) resolvePersisted(ctx context.Context) (*Session, error) {
	stepCtx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()

	session, err := m.backend.CurrentSession(stepCtx)
	if err != nil || session == nil {
		return nil, err
	}

	if !session.Expired(m.clock.Now()) {
		return session, nil
	}

	refreshCtx, cancelRefresh := context.WithTimeout(ctx, m.stepTimeout)
	defer cancelRefresh()

	refreshed, err := m.backend.RefreshSession(refreshCtx, session)
	if err != nil {
		return nil, err
	}
	if refreshed == nil {
		return nil, errors.New(SignatureRefreshFailed)
	}
	return refreshed, nil
}

// SignIn authenticates with the backend. It returns a ConflictError while a
// session is active and a translated AuthError on failure.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	select {
	case <-ctx.Done():
		return nil, m.translator.AsError(ctx.Err())
	default:
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.isClosed() {
		return nil, ErrManagerClosed.Clone()
	}

	if state, _ := m.current(); state == StateAuthenticated {
		return nil, ErrSessionAlreadyActive.Clone()
	}

	m.transition(StateLoading, nil, nil)

	stepCtx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	defer cancel()

	session, err := m.backend.SignIn(stepCtx, email, password)
	if err == nil && session == nil {
		err = errors.New("identity backend returned no session")
	}
	if err != nil {
		terr := m.translator.AsError(err)
		m.transition(StateUnauthenticated, nil, terr)
		return nil, terr
	}

	m.transition(StateAuthenticated, session, nil)
	return session.Clone(), nil
}

// SignOut revokes the session remotely and always clears local state.
// A remote failure is still reported. Without a session it only settles the
// state on unauthenticated.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	return m.signOutLocked(ctx, nil)
}

func (m *SessionManager) signOutLocked(ctx context.Context, cause error) error {
	state, session := m.current()
	if session == nil {
		if state != StateUnauthenticated {
			m.transition(StateUnauthenticated, nil, cause)
		}
		return nil
	}

	stepCtx, cancel := context.WithTimeout(ctx, m.stepTimeout)
	remoteErr := m.backend.SignOut(stepCtx, session)
	cancel()

	m.forget(session)
	m.transition(StateUnauthenticated, nil, cause)

	if remoteErr != nil {
		m.logger.Warn("session manager remote sign out failed: %v", remoteErr)
		return m.translator.AsError(remoteErr)
	}
	return nil
}

// Teardown stops the refresh loop and unsubscribes from the backend.
// It is idempotent and waits for an in-flight tick to finish.
func (m *SessionManager) Teardown() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		started := m.started
		unsubscribe := m.unsubscribe
		m.unsubscribe = nil
		m.mu.Unlock()

		m.loopCancel()
		close(m.stopCh)

		if unsubscribe != nil {
			unsubscribe()
		}
		if started {
			<-m.done
		}
	})
}

// Snapshot returns the current observable state.
func (m *SessionManager) Snapshot() SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Subscribe registers an observer and returns its cancel func.
func (m *SessionManager) Subscribe(observer SessionObserver) (cancel func()) {
	if observer == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = observer
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// ActingIdentity returns the identity of the authenticated session.
func (m *SessionManager) ActingIdentity(ctx context.Context) (*Identity, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	snap := m.Snapshot()
	if snap.State != StateAuthenticated || snap.Session == nil {
		return nil, m.translator.AsError(errors.New(SignatureSessionExpired))
	}
	return snap.Identity(), nil
}

func (m *SessionManager) loop() {
	defer close(m.done)

	ticker := m.clock.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.Chan():
			m.refreshTick()
		case <-m.wake:
			m.drainEvents()
		}
	}
}

func (m *SessionManager) refreshTick() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	state, session := m.current()
	if state != StateAuthenticated || session == nil {
		return
	}

	ctx, cancel := context.WithTimeout(m.loopCtx, m.stepTimeout)
	next, err := m.backend.RefreshSession(ctx, session)
	cancel()

	if m.loopCtx.Err() != nil {
		return
	}

	if err == nil && next == nil {
		err = errors.New(SignatureRefreshFailed)
	}

	if err != nil {
		m.logger.Warn("session refresh failed, signing out: %v", err)
		terr := m.translator.AsError(err)
		signOutCtx, cancelSignOut := context.WithTimeout(m.loopCtx, m.stepTimeout)
		defer cancelSignOut()
		if serr := m.signOutLocked(signOutCtx, terr); serr != nil {
			m.logger.Debug("sign out after failed refresh: %v", serr)
		}
		return
	}

	m.logger.Debug("session refreshed for identity %s", next.Identity.ID)
	m.transition(StateAuthenticated, next, nil)
}

func (m *SessionManager) enqueue(ev SessionEvent) {
	m.eventsMu.Lock()
	m.pending = append(m.pending, ev)
	m.eventsMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *SessionManager) drainEvents() {
	for {
		m.eventsMu.Lock()
		if len(m.pending) == 0 {
			m.eventsMu.Unlock()
			return
		}
		ev := m.pending[0]
		m.pending[0] = SessionEvent{}
		m.pending = m.pending[1:]
		m.eventsMu.Unlock()

		select {
		case <-m.stopCh:
			return
		default:
		}

		m.applyEvent(ev)
	}
}

func (m *SessionManager) applyEvent(ev SessionEvent) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	state, current := m.current()

	switch ev.Type {
	case SessionEventSignedIn:
		if ev.Session == nil {
			return
		}
		if current != nil && current.AccessToken == ev.Session.AccessToken {
			return
		}
		if m.wasCleared(ev.Session.AccessToken) {
			m.logger.Debug("ignoring stale sign in notification for identity %s", ev.Session.Identity.ID)
			return
		}
		m.transition(StateAuthenticated, ev.Session, nil)

	case SessionEventTokenRefreshed:
		if state != StateAuthenticated || current == nil || ev.Session == nil {
			return
		}
		if current.Identity.ID != ev.Session.Identity.ID || current.AccessToken == ev.Session.AccessToken {
			return
		}
		m.transition(StateAuthenticated, ev.Session, nil)

	case SessionEventSignedOut:
		if current == nil {
			return
		}
		// a sign out carrying another token belongs to an earlier session
		if ev.Session != nil && ev.Session.AccessToken != current.AccessToken {
			m.logger.Debug("ignoring stale sign out notification for identity %s", ev.Session.Identity.ID)
			return
		}
		m.forget(current)
		m.transition(StateUnauthenticated, nil, nil)

	default:
		m.logger.Debug("ignoring unknown session notification %q", ev.Type)
	}
}

func (m *SessionManager) current() (SessionState, *Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.session
}

func (m *SessionManager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *SessionManager) transition(state SessionState, session *Session, err error) {
	m.mu.Lock()
	m.state = state
	m.session = session.Clone()
	m.lastErr = err
	snap := m.snapshotLocked()
	observers := make([]SessionObserver, 0, len(m.observers))
	for _, o := range m.observers {
		observers = append(observers, o)
	}
	m.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (m *SessionManager) snapshotLocked() SessionSnapshot {
	return SessionSnapshot{
		State:   m.state,
		Session: m.session.Clone(),
		Err:     m.lastErr,
	}
}

func (m *SessionManager) forget(session *Session) {
	if session == nil || session.AccessToken == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, session.AccessToken)
	if len(m.cleared) > clearedTokenMemory {
		m.cleared = m.cleared[len(m.cleared)-clearedTokenMemory:]
	}
}

func (m *SessionManager) wasCleared(token string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.cleared {
		if t == token {
			return true
		}
	}
	return false
}
