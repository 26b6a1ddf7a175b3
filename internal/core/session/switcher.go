package session

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/pkg/logger"
)

// Switcher changes which roles a user holds and which one is active. It
// checks preconditions against the resolver's cache, performs one remote
// call and re-resolves so the cache reflects the change before returning.
// It does no local locking: concurrent switches are serialised server-side.
type Switcher struct {
	procedures RoleProcedures
	resolver   *Resolver
	log        zerolog.Logger
}

func NewSwitcher(procedures RoleProcedures, resolver *Resolver, log zerolog.Logger) *Switcher {
	return &Switcher{
		procedures: procedures,
		resolver:   resolver,
		log:        logger.Component(log, "role_switcher"),
	}
}

// SwitchRole makes target the active role of userID. It fails with a
// rejected-precondition failure, without any remote call, when target is not
// among the cached role assignments.
func (s *Switcher) SwitchRole(ctx context.Context, userID string, target domain.Role) error {
	if !target.Valid() {
		return domain.Rejected(domain.ErrInvalidRole)
	}

	cached := s.resolver.Cached()
	if cached.UserID != userID || !domain.HoldsRole(cached.Roles, target) {
		return domain.Rejected(domain.ErrRoleNotHeld)
	}

	res, err := s.procedures.SwitchRole(ctx, target, "")
	if err != nil {
		s.log.Warn().Err(err).Str("target", string(target)).Msg("switch_role call failed")
		return asFailure(err)
	}
	if !res.Success || res.Error != "" {
		msg := res.Error
		if msg == "" {
			msg = "role switch was not applied"
		}
		s.log.Info().Str("target", string(target)).Str("reason", msg).Msg("switch_role rejected")
		return domain.RejectedMessage(msg)
	}

	return s.refresh(ctx, userID)
}

// AddRole grants role to userID. Providers need a business name; the check
// happens before any remote write.
func (s *Switcher) AddRole(ctx context.Context, userID string, role domain.Role, businessName string) error {
	if !role.Valid() {
		return domain.Rejected(domain.ErrInvalidRole)
	}
	businessName = strings.TrimSpace(businessName)
	if role == domain.RoleProvider && businessName == "" {
		return domain.Rejected(domain.ErrBusinessNameRequired)
	}

	cached := s.resolver.Cached()
	if cached.UserID == userID && domain.HoldsRole(cached.Roles, role) {
		return domain.Rejected(domain.ErrRoleAlreadyHeld)
	}

	if err := s.procedures.AddRole(ctx, role, businessName); err != nil {
		s.log.Warn().Err(err).Str("role", string(role)).Msg("add role failed")
		return asFailure(err)
	}

	return s.refresh(ctx, userID)
}

func (s *Switcher) refresh(ctx context.Context, userID string) error {
	res := s.resolver.Fetch(ctx, userID)
	if res.Failure != nil {
		return res.Failure
	}
	return nil
}
