package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
	"github.com/lastslot/account-service/pkg/logger"
)

// AccountService implements profile and role-assignment use cases.
type AccountService struct {
	profiles ports.ProfileRepository
	roles    ports.RoleRepository
	audit    ports.AuditPublisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewAccountService(
	profiles ports.ProfileRepository,
	roles ports.RoleRepository,
	audit ports.AuditPublisher,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		profiles: profiles,
		roles:    roles,
		audit:    audit,
		log:      logger.Component(log, "account"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profiles.FindProfile(ctx, userID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
	p, err := s.profiles.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := u.Apply(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.profiles.UpdateProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// Onboard creates the profile of a user who has signed up but not yet picked
// a role. The chosen role becomes both the declared and the active role.
func (s *AccountService) Onboard(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	businessName = strings.TrimSpace(businessName)
	if role == domain.RoleProvider && businessName == "" {
		return nil, domain.ErrBusinessNameRequired
	}

	now := s.now()
	p := &domain.Profile{
		UserID:       userID,
		Role:         role,
		ActiveRole:   role,
		BusinessName: businessName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	assignment := domain.RoleAssignment{UserID: userID, Role: role, Active: true, CreatedAt: now}

	var business *domain.BusinessDetails
	if role == domain.RoleProvider {
		business = &domain.BusinessDetails{UserID: userID, BusinessName: businessName, CreatedAt: now}
	}

	if err := s.profiles.CreateProfile(ctx, p, assignment, business); err != nil {
		return nil, err
	}

	s.publish(userID, domain.AuditProfileCreated, string(role))
	s.log.Info().Str("user_id", userID).Str("role", string(role)).Msg("profile created")
	return p, nil
}

func (s *AccountService) ListRoles(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error) {
	return s.roles.ListAssignments(ctx, userID, activeOnly)
}

func (s *AccountService) AddRole(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.RoleAssignment, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	businessName = strings.TrimSpace(businessName)
	if role == domain.RoleProvider && businessName == "" {
		return nil, domain.ErrBusinessNameRequired
	}

	// A profile must exist: the new role only becomes reachable through it.
	if _, err := s.profiles.FindProfile(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	a := domain.RoleAssignment{UserID: userID, Role: role, Active: true, CreatedAt: now}
	var business *domain.BusinessDetails
	if role == domain.RoleProvider {
		business = &domain.BusinessDetails{UserID: userID, BusinessName: businessName, CreatedAt: now}
	}

	if err := s.roles.AddAssignment(ctx, a, business); err != nil {
		return nil, err
	}

	s.publish(userID, domain.AuditRoleAdded, string(role))
	s.log.Info().Str("user_id", userID).Str("role", string(role)).Msg("role added")
	return &a, nil
}

func (s *AccountService) SwitchRole(ctx context.Context, userID string, target domain.Role, businessName string) (domain.SwitchRoleResult, error) {
	if !target.Valid() {
		return domain.SwitchRoleResult{Error: domain.ErrInvalidRole.Error()}, nil
	}

	active, err := s.roles.SwitchActiveRole(ctx, userID, target, strings.TrimSpace(businessName))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoleNotHeld), errors.Is(err, domain.ErrProfileNotFound):
			s.log.Debug().Str("user_id", userID).Str("target", string(target)).Err(err).Msg("role switch rejected")
			return domain.SwitchRoleResult{Error: err.Error()}, nil
		default:
			return domain.SwitchRoleResult{}, fmt.Errorf("switch role: %w", err)
		}
	}

	s.publish(userID, domain.AuditRoleSwitched, string(active))
	s.log.Info().Str("user_id", userID).Str("active_role", string(active)).Msg("role switched")
	return domain.SwitchRoleResult{Success: true, ActiveRole: active}, nil
}

func (s *AccountService) GetBusiness(ctx context.Context, userID string) (*domain.BusinessDetails, error) {
	return s.roles.FindBusiness(ctx, userID)
}

func (s *AccountService) publish(userID string, typ domain.AuditEventType, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(domain.AuditEvent{UserID: userID, Type: typ, Detail: detail, OccurredAt: s.now()})
}
