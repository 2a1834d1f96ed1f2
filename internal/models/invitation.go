package models

import "time"

// Invitation states. Only 'pending' has outward transitions; the other
// four are terminal.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
	InvitationCanceled = "canceled"
	InvitationExpired  = "expired"
)

// Invitation is an offer to join a family, addressed to a normalized email
type Invitation struct {
	ID          int64
	FamilyID    int64
	Code        string
	Email       string // trimmed and lowercased before storage
	Status      string
	InvitedBy   int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RespondedAt *time.Time
	InviterName string // Populated via JOIN
}

func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// IsOpen reports whether the invitation can still be acted upon
func (i *Invitation) IsOpen() bool {
	return i.IsPending() && !i.IsExpired()
}
