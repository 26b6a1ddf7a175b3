package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
)

var errBackendDown = errors.New("backend down")

type stubAuth struct {
	changes    chan domain.AuthChange
	current    *domain.Session
	currentErr error
	signOuts   int
}

func newStubAuth() *stubAuth {
	return &stubAuth{changes: make(chan domain.AuthChange, 16)}
}

func (a *stubAuth) CurrentSession(_ context.Context) (*domain.Session, error) {
	return a.current, a.currentErr
}

func (a *stubAuth) Changes() <-chan domain.AuthChange { return a.changes }

func (a *stubAuth) SignIn(_ context.Context, email, _ string) (*domain.Session, error) {
	if email == "" {
		return nil, domain.Rejected(domain.ErrInvalidCredentials)
	}
	return &domain.Session{ID: "s-" + email, UserID: "u-" + email, Email: email}, nil
}

func (a *stubAuth) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	return a.SignIn(ctx, email, password)
}

func (a *stubAuth) SignOut(_ context.Context) error {
	a.signOuts++
	return nil
}

func (a *stubAuth) emit(t domain.AuthChangeType, userID string) {
	var sess *domain.Session
	if userID != "" {
		sess = &domain.Session{ID: "s-" + userID, UserID: userID}
	}
	a.changes <- domain.AuthChange{Type: t, Session: sess}
}

// stubSource serves profiles and role assignments from memory. A gate set
// for a user blocks GetProfile for that user until the gate is closed.
type stubSource struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	roles    map[string][]domain.RoleAssignment
	gates    map[string]chan struct{}
	calls    map[string]int
	err      error
}

func newStubSource() *stubSource {
	return &stubSource{
		profiles: make(map[string]*domain.Profile),
		roles:    make(map[string][]domain.RoleAssignment),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

func (s *stubSource) seed(userID string, active domain.Role, held ...domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = &domain.Profile{UserID: userID, Role: active, ActiveRole: active, FullName: "Name " + userID}
	s.roles[userID] = nil
	for _, r := range held {
		s.roles[userID] = append(s.roles[userID], domain.RoleAssignment{UserID: userID, Role: r, Active: true})
	}
}

func (s *stubSource) gate(userID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	s.gates[userID] = g
	return g
}

func (s *stubSource) callCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[userID]
}

func (s *stubSource) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *stubSource) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	s.calls[userID]++
	gate := s.gates[userID]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *stubSource) ListActiveRoles(_ context.Context, userID string) ([]domain.RoleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.RoleAssignment(nil), s.roles[userID]...), nil
}

func (s *stubSource) UpdateProfile(_ context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.Rejected(domain.ErrProfileNotFound)
	}
	if err := u.Apply(p); err != nil {
		return nil, domain.Rejected(err)
	}
	clone := *p
	return &clone, nil
}

func (s *stubSource) setActive(userID string, r domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		p.ActiveRole = r
	}
}

func (s *stubSource) grant(userID string, r domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = append(s.roles[userID], domain.RoleAssignment{UserID: userID, Role: r, Active: true})
}

// stubProcedures applies role mutations to a stubSource for user.
type stubProcedures struct {
	source *stubSource
	user   string

	switchCalls int
	addCalls    int
	result      *domain.SwitchRoleResult
	err         error
}

func (p *stubProcedures) SwitchRole(_ context.Context, target domain.Role, _ string) (domain.SwitchRoleResult, error) {
	p.switchCalls++
	if p.err != nil {
		return domain.SwitchRoleResult{}, p.err
	}
	if p.result != nil {
		return *p.result, nil
	}
	p.source.setActive(p.user, target)
	return domain.SwitchRoleResult{Success: true, ActiveRole: target}, nil
}

func (p *stubProcedures) AddRole(_ context.Context, role domain.Role, _ string) error {
	p.addCalls++
	if p.err != nil {
		return p.err
	}
	p.source.grant(p.user, role)
	return nil
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}
