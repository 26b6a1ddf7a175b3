package service

import (
	"context"
	"sync"
	"time"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
)

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	created := cloneUser(user)
	if created.ID == "" {
		created.ID = "u-" + user.Email
	}
	r.users[created.Email] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type stubTokenStore struct {
	mu       sync.Mutex
	sessions map[string]ports.StoredSession
	ttls     map[string]time.Duration
	err      error
	// beforeGet, when set, runs at the start of every Get.
	beforeGet func()
}

func newStubTokenStore() *stubTokenStore {
	return &stubTokenStore{
		sessions: make(map[string]ports.StoredSession),
		ttls:     make(map[string]time.Duration),
	}
}

func (s *stubTokenStore) Save(_ context.Context, id string, sess ports.StoredSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sessions[id] = sess
	s.ttls[id] = ttl
	return nil
}

func (s *stubTokenStore) Get(_ context.Context, id string) (*ports.StoredSession, error) {
	if s.beforeGet != nil {
		s.beforeGet()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *stubTokenStore) Rotate(_ context.Context, id, oldHash, newHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.RefreshHash != oldHash {
		return domain.ErrInvalidToken
	}
	sess.RefreshHash = newHash
	s.sessions[id] = sess
	s.ttls[id] = ttl
	return nil
}

func (s *stubTokenStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok, nil
}

func (s *stubTokenStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type stubLimiter struct {
	limit  int
	counts map[string]int
	err    error
	resets []string
}

func newStubLimiter(limit int) *stubLimiter {
	return &stubLimiter{limit: limit, counts: make(map[string]int)}
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.counts[key]++
	return l.counts[key] <= l.limit, nil
}

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	delete(l.counts, key)
	l.resets = append(l.resets, key)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (p *recordingPublisher) Publish(e domain.AuditEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []domain.AuditEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuditEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type stubProfileRepo struct {
	profiles  map[string]*domain.Profile
	roles     *stubRoleRepo
	createErr error
}

func newStubProfileRepo(roles *stubRoleRepo) *stubProfileRepo {
	return &stubProfileRepo{profiles: make(map[string]*domain.Profile), roles: roles}
}

func (r *stubProfileRepo) FindProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProfileRepo) UpdateProfile(_ context.Context, p *domain.Profile) error {
	if _, ok := r.profiles[p.UserID]; !ok {
		return domain.ErrProfileNotFound
	}
	clone := *p
	r.profiles[p.UserID] = &clone
	return nil
}

func (r *stubProfileRepo) CreateProfile(ctx context.Context, p *domain.Profile, a domain.RoleAssignment, b *domain.BusinessDetails) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.profiles[p.UserID]; ok {
		return domain.ErrProfileExists
	}
	clone := *p
	r.profiles[p.UserID] = &clone
	return r.roles.AddAssignment(ctx, a, b)
}

type stubRoleRepo struct {
	assignments map[string][]domain.RoleAssignment
	business    map[string]*domain.BusinessDetails
	profiles    *stubProfileRepo
	switchErr   error
}

func newStubAccountRepos() (*stubProfileRepo, *stubRoleRepo) {
	roles := &stubRoleRepo{
		assignments: make(map[string][]domain.RoleAssignment),
		business:    make(map[string]*domain.BusinessDetails),
	}
	profiles := newStubProfileRepo(roles)
	roles.profiles = profiles
	return profiles, roles
}

func (r *stubRoleRepo) ListAssignments(_ context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error) {
	var out []domain.RoleAssignment
	for _, a := range r.assignments[userID] {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *stubRoleRepo) AddAssignment(_ context.Context, a domain.RoleAssignment, b *domain.BusinessDetails) error {
	for _, existing := range r.assignments[a.UserID] {
		if existing.Role == a.Role {
			return domain.ErrRoleAlreadyHeld
		}
	}
	r.assignments[a.UserID] = append(r.assignments[a.UserID], a)
	if b != nil {
		clone := *b
		r.business[b.UserID] = &clone
	}
	return nil
}

func (r *stubRoleRepo) SwitchActiveRole(_ context.Context, userID string, target domain.Role, businessName string) (domain.Role, error) {
	if r.switchErr != nil {
		return "", r.switchErr
	}
	p, ok := r.profiles.profiles[userID]
	if !ok {
		return "", domain.ErrProfileNotFound
	}
	if !domain.HoldsRole(r.assignments[userID], target) {
		return "", domain.ErrRoleNotHeld
	}
	if target == domain.RoleProvider && businessName != "" && r.business[userID] == nil {
		r.business[userID] = &domain.BusinessDetails{UserID: userID, BusinessName: businessName}
	}
	p.ActiveRole = target
	return target, nil
}

func (r *stubRoleRepo) FindBusiness(_ context.Context, userID string) (*domain.BusinessDetails, error) {
	b, ok := r.business[userID]
	if !ok {
		return nil, domain.ErrBusinessNotFound
	}
	return b, nil
}
