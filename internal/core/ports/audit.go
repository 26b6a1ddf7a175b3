package ports

import (
	"context"

	"github.com/lastslot/account-service/internal/core/domain"
)

// AuditRepository appends audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
}

// AuditService persists a single audit event.
type AuditService interface {
	Process(ctx context.Context, event domain.AuditEvent) error
}

// AuditPublisher hands audit events to the asynchronous pipeline.
type AuditPublisher interface {
	Publish(event domain.AuditEvent)
}
