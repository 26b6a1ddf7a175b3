package domain

import "time"

// AuditEventType classifies auth and role transitions.
type AuditEventType string

const (
	AuditSignedUp       AuditEventType = "signed_up"
	AuditSignedIn       AuditEventType = "signed_in"
	AuditSignedOut      AuditEventType = "signed_out"
	AuditTokenRefreshed AuditEventType = "token_refreshed"
	AuditRoleSwitched   AuditEventType = "role_switched"
	AuditRoleAdded      AuditEventType = "role_added"
	AuditProfileCreated AuditEventType = "profile_created"
)

// AuditEvent is an append-only record of an account transition.
type AuditEvent struct {
	UserID     string
	Type       AuditEventType
	Detail     string
	OccurredAt time.Time
}
