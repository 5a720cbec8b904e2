// Package notification delivers approval notifications to users.
package notification

import (
	"context"
)

// Kind names the template a notification is rendered with.
type Kind string

const (
	KindApprovalRequested Kind = "approval_requested"
	KindApprovalDecision  Kind = "approval_decision"
	KindApprovalReminder  Kind = "approval_reminder"
	KindApprovalEscalated Kind = "approval_escalated"
)

// Gateway sends one notification to one user. Rendering is up to the implementation.
type Gateway interface {
	Notify(ctx context.Context, userID string, kind Kind, data map[string]any) error
}
