package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/pkg/logger"
)

// ProfileResult is the outcome of a profile fetch. Profile is nil both when
// the user has not onboarded (Failure nil) and when the fetch failed
// (Failure set); callers branch on Failure.
type ProfileResult struct {
	UserID  string
	Profile *domain.Profile
	Roles   []domain.RoleAssignment
	Failure *domain.Failure
}

// OK reports whether the fetch completed.
func (r ProfileResult) OK() bool { return r.Failure == nil }

func (r ProfileResult) clone() ProfileResult {
	out := r
	if r.Profile != nil {
		p := *r.Profile
		out.Profile = &p
	}
	if r.Roles != nil {
		out.Roles = append([]domain.RoleAssignment(nil), r.Roles...)
	}
	return out
}

// Resolver loads profile and role assignments and owns the cached copy.
// Writes carry a generation number: a fetch that finishes after a newer one
// was started is returned to its caller but never cached.
type Resolver struct {
	source ProfileSource
	log    zerolog.Logger

	mu     sync.RWMutex
	issued uint64
	cached ProfileResult

	// sessionUser, when set, returns the user of the current session; results
	// for any other user are discarded.
	sessionUser func() string
	// onApplied is called, outside the lock, after every cache write.
	onApplied func(ProfileResult)
}

func NewResolver(source ProfileSource, log zerolog.Logger) *Resolver {
	return &Resolver{source: source, log: logger.Component(log, "profile_resolver")}
}

// Fetch reads the profile and the active role assignments of userID in
// parallel and caches the merged result unless it went stale meanwhile.
func (r *Resolver) Fetch(ctx context.Context, userID string) ProfileResult {
	res, _ := r.fetch(ctx, userID)
	return res
}

func (r *Resolver) fetch(ctx context.Context, userID string) (ProfileResult, bool) {
	r.mu.Lock()
	r.issued++
	gen := r.issued
	r.mu.Unlock()

	res := r.load(ctx, userID)
	return res, r.store(gen, res)
}

func (r *Resolver) load(ctx context.Context, userID string) ProfileResult {
	var (
		profile *domain.Profile
		roles   []domain.RoleAssignment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = r.source.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = r.source.ListActiveRoles(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("profile fetch failed")
		return ProfileResult{UserID: userID, Failure: asFailure(err)}
	}

	if profile == nil {
		r.log.Debug().Str("user_id", userID).Msg("no profile yet, onboarding pending")
	}
	return ProfileResult{UserID: userID, Profile: profile, Roles: roles}
}

func (r *Resolver) store(gen uint64, res ProfileResult) bool {
	if r.sessionUser != nil && r.sessionUser() != res.UserID {
		r.log.Debug().Str("user_id", res.UserID).Msg("discarding profile of a previous session")
		return false
	}

	r.mu.Lock()
	if gen != r.issued {
		r.mu.Unlock()
		r.log.Debug().Str("user_id", res.UserID).Uint64("generation", gen).Msg("discarding stale profile fetch")
		return false
	}
	r.cached = res.clone()
	r.mu.Unlock()

	if r.onApplied != nil {
		r.onApplied(res.clone())
	}
	return true
}

// Update writes profile fields through the source and caches the returned
// profile. In-flight fetches started before the update are discarded.
func (r *Resolver) Update(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
	p, err := r.source.UpdateProfile(ctx, userID, u)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("profile update failed")
		return nil, asFailure(err)
	}

	r.mu.Lock()
	r.issued++
	gen := r.issued
	roles := r.cached.Roles
	if r.cached.UserID != userID {
		roles = nil
	}
	r.mu.Unlock()

	r.store(gen, ProfileResult{UserID: userID, Profile: p, Roles: roles})
	clone := *p
	return &clone, nil
}

// Cached returns a copy of the cached result.
func (r *Resolver) Cached() ProfileResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached.clone()
}

// Clear drops the cache and invalidates every in-flight fetch.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.issued++
	r.cached = ProfileResult{}
	r.mu.Unlock()
}

// asFailure keeps backend-tagged failures and tags everything else as a
// transport failure.
func asFailure(err error) *domain.Failure {
	var f *domain.Failure
	if errors.As(err, &f) {
		return f
	}
	return domain.Unavailable(err)
}
