package models

import "time"

// AuditEntry records a family-scoped action for the audit trail.
// Writing the trail is best-effort; readers must tolerate gaps.
type AuditEntry struct {
	ID         int64
	FamilyID   int64
	ActorID    int64
	Action     string
	TargetType *string
	TargetID   *int64
	Metadata   string // JSON blob, may be empty
	CreatedAt  time.Time
}
