// Package audit is the append-only trail of credential and session events.
// Events are written through a Recorder, which never lets a sink failure
// reach the operation being described.
package audit

import (
	"context"
	"time"
)

// Action enumerates the auditable credential lifecycle events.
type Action string

const (
	ActionLogin                Action = "LOGIN"
	ActionLogout               Action = "LOGOUT"
	ActionRegister             Action = "REGISTER"
	ActionPasswordResetRequest Action = "PASSWORD_RESET_REQUEST"
	ActionPasswordResetConfirm Action = "PASSWORD_RESET_CONFIRM"
	ActionPasswordUpdate       Action = "PASSWORD_UPDATE"
	ActionEmailUpdate          Action = "EMAIL_UPDATE"
	ActionEmailVerify          Action = "EMAIL_VERIFY"
	ActionMFAEnable            Action = "MFA_ENABLE"
	ActionMFADisable           Action = "MFA_DISABLE"
	ActionMFAVerify            Action = "MFA_VERIFY"
	ActionTokenRefresh         Action = "TOKEN_REFRESH"
	ActionInviteCreate         Action = "INVITE_CREATE"
	ActionInviteAccept         Action = "INVITE_ACCEPT"
	ActionAccountLock          Action = "ACCOUNT_LOCK"
	ActionAccountUnlock        Action = "ACCOUNT_UNLOCK"
)

// Event is one append-only record. ActorID is empty when the event describes
// an unauthenticated attempt.
type Event struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id,omitempty"`
	Action     Action            `json:"action"`
	Success    bool              `json:"success"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink accepts events. Implementations must never mutate or delete what they
// have accepted.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
