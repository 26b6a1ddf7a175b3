package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
	"github.com/lastslot/account-service/pkg/logger"
)

var errIncompleteAuditEvent = errors.New("audit event requires user id and type")

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that appends events to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: logger.Component(log, "audit")}
}

// Process validates and persists a single audit event.
func (s *auditService) Process(ctx context.Context, event domain.AuditEvent) error {
	if event.UserID == "" || event.Type == "" {
		return fmt.Errorf("process audit event: %w", errIncompleteAuditEvent)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		return fmt.Errorf("process audit event: insert: %w", err)
	}

	s.log.Debug().
		Str("user_id", event.UserID).
		Str("type", string(event.Type)).
		Msg("audit event stored")
	return nil
}
