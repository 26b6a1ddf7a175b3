// Package session tracks who is signed in, caches their profile and role
// assignments, and mediates role changes. A single Manager is constructed at
// startup and shared by every consumer.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/routeguard"
	"github.com/lastslot/account-service/pkg/logger"
)

const defaultCompletionHintTTL = 30 * time.Second

var errAlreadyStarted = errors.New("session manager already started")

// State is a snapshot of the session and the cached profile.
type State struct {
	Session       *domain.Session
	Profile       *domain.Profile
	Roles         []domain.RoleAssignment
	Failure       *domain.Failure
	Loading       bool
	JustCompleted bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCompletionHintTTL sets how long MarkProfileCompleted is trusted.
func WithCompletionHintTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.hintTTL = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is the session store. It consumes the auth client's change stream
// on one goroutine, fans events out to subscribers and kicks off a profile
// fetch for every event that carries a session.
type Manager struct {
	auth     AuthClient
	resolver *Resolver
	switcher *Switcher
	log      zerolog.Logger
	hintTTL  time.Duration
	now      func() time.Time

	mu          sync.RWMutex
	started     bool
	session     *domain.Session
	loading     bool
	generation  uint64
	completedAt time.Time
	subs        map[uint64]*Subscription
	nextSub     uint64

	ready   chan struct{}
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	fetches sync.WaitGroup
}

func NewManager(auth AuthClient, profiles ProfileSource, roles RoleProcedures, log zerolog.Logger, opts ...Option) *Manager {
	resolver := NewResolver(profiles, log)
	m := &Manager{
		auth:     auth,
		resolver: resolver,
		switcher: NewSwitcher(roles, resolver, log),
		log:      logger.Component(log, "session"),
		hintTTL:  defaultCompletionHintTTL,
		now:      time.Now,
		loading:  true,
		subs:     make(map[uint64]*Subscription),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	resolver.sessionUser = m.currentUserID
	resolver.onApplied = m.profileApplied
	return m
}

// Start runs the initial session check and then follows the auth client's
// change stream until ctx is cancelled or Close is called. It returns
// immediately; Ready is closed once the initial check has settled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errAlreadyStarted
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.loop.Add(1)
	go m.run(ctx)
	return nil
}

// Ready is closed once the initial session check has completed, successfully
// or not.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Close stops the event loop, waits for in-flight fetches and closes every
// subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.loop.Wait()
	m.fetches.Wait()

	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.loop.Done()

	sess, err := m.auth.CurrentSession(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("initial session check failed, continuing signed out")
		sess = nil
	}
	m.apply(ctx, domain.AuthChange{Type: domain.AuthInitial, Session: sess}, true)

	changes := m.auth.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			m.apply(ctx, change, false)
		}
	}
}

// apply records change and notifies subscribers. settle closes Ready under
// the same lock so Observe never misses or duplicates the initial event.
func (m *Manager) apply(ctx context.Context, change domain.AuthChange, settle bool) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.session = change.Session
	m.loading = change.Session != nil
	if change.Session == nil {
		m.completedAt = time.Time{}
	}
	if settle {
		close(m.ready)
	}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	m.log.Debug().Str("change", string(change.Type)).Bool("signed_in", change.Session != nil).Msg("auth state changed")
	for _, s := range subs {
		s.push(Event{Kind: EventAuthChanged, Change: change.Type, Session: change.Session})
	}

	if change.Session == nil {
		m.resolver.Clear()
		return
	}

	userID := change.Session.UserID
	m.fetches.Add(1)
	go func() {
		defer m.fetches.Done()
		m.resolver.Fetch(ctx, userID)
		m.finishLoading(gen)
	}()
}

func (m *Manager) finishLoading(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.generation {
		m.loading = false
	}
}

func (m *Manager) profileApplied(res ProfileResult) {
	m.mu.Lock()
	if res.Profile != nil && res.Profile.Complete {
		m.completedAt = time.Time{}
	}
	subs := m.subscribersLocked()
	m.mu.Unlock()

	for _, s := range subs {
		s.push(Event{Kind: EventProfileChanged, Profile: res})
	}
}

func (m *Manager) subscribersLocked() []*Subscription {
	subs := make([]*Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	return subs
}

// Observe registers a subscriber. Once the initial check has settled, the
// subscriber first receives the current session as an INITIAL_SESSION event.
func (m *Manager) Observe(buffer int) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	sub := newSubscription(buffer, func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	})
	m.subs[id] = sub

	select {
	case <-m.ready:
		sub.push(Event{Kind: EventAuthChanged, Change: domain.AuthInitial, Session: m.session})
	default:
	}
	return sub
}

// CurrentSession returns the last known session, nil when signed out or
// before the initial check has settled.
func (m *Manager) CurrentSession() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *Manager) currentUserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.UserID
}

// State returns a consistent snapshot of session and cached profile.
func (m *Manager) State() State {
	cached := m.resolver.Cached()

	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{Session: m.session, Loading: m.loading}
	if m.session != nil && cached.UserID == m.session.UserID {
		st.Profile = cached.Profile
		st.Roles = cached.Roles
		st.Failure = cached.Failure
	}
	st.JustCompleted = m.hintActiveLocked(st.Profile)
	return st
}

func (m *Manager) hintActiveLocked(p *domain.Profile) bool {
	if m.completedAt.IsZero() || p == nil || p.Complete {
		return false
	}
	return m.now().Sub(m.completedAt) < m.hintTTL
}

// Profile returns the cached profile result.
func (m *Manager) Profile() ProfileResult {
	return m.resolver.Cached()
}

// RefreshProfile refetches the profile of the signed-in user.
func (m *Manager) RefreshProfile(ctx context.Context) ProfileResult {
	userID := m.currentUserID()
	if userID == "" {
		return ProfileResult{Failure: domain.Rejected(domain.ErrNotSignedIn)}
	}
	return m.resolver.Fetch(ctx, userID)
}

// UpdateProfile writes profile fields of the signed-in user.
func (m *Manager) UpdateProfile(ctx context.Context, u domain.ProfileUpdate) (*domain.Profile, error) {
	userID := m.currentUserID()
	if userID == "" {
		return nil, domain.Rejected(domain.ErrNotSignedIn)
	}
	return m.resolver.Update(ctx, userID, u)
}

// SwitchRole activates role for the signed-in user.
func (m *Manager) SwitchRole(ctx context.Context, role domain.Role) error {
	userID := m.currentUserID()
	if userID == "" {
		return domain.Rejected(domain.ErrNotSignedIn)
	}
	return m.switcher.SwitchRole(ctx, userID, role)
}

// AddRole grants role to the signed-in user.
func (m *Manager) AddRole(ctx context.Context, role domain.Role, businessName string) error {
	userID := m.currentUserID()
	if userID == "" {
		return domain.Rejected(domain.ErrNotSignedIn)
	}
	return m.switcher.AddRole(ctx, userID, role, businessName)
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, asFailure(err)
	}
	return sess, nil
}

func (m *Manager) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, asFailure(err)
	}
	return sess, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		return asFailure(err)
	}
	return nil
}

// MarkProfileCompleted records that the user just submitted the completion
// form. Until the refetched profile reports completeness (or the hint
// expires) routing treats the profile as complete.
func (m *Manager) MarkProfileCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completedAt = m.now()
}

// DecideRoute applies the route guard to the current state.
func (m *Manager) DecideRoute(path, lastRoute string) routeguard.Decision {
	st := m.State()
	return routeguard.Decide(routeguard.Input{
		Session:       st.Session,
		Profile:       st.Profile,
		Path:          path,
		LastRoute:     lastRoute,
		JustCompleted: st.JustCompleted,
	})
}
