package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered             ActivityEventType = "identity.registered"
	ActivityEventLoginSuccess           ActivityEventType = "identity.login.success"
	ActivityEventLoginFailure           ActivityEventType = "identity.login.failure"
	ActivityEventPasswordResetRequested ActivityEventType = "identity.password.reset_requested"
	ActivityEventPasswordResetSuccess   ActivityEventType = "identity.password.reset"
	ActivityEventVerificationCompleted  ActivityEventType = "identity.verification.completed"
	ActivityEventEmailChangeRequested   ActivityEventType = "identity.email.change_requested"
	ActivityEventEmailChangeCompleted   ActivityEventType = "identity.email.change_completed"
	// ActivityEventNotificationDropped records a best-effort notification
	// that failed after the state change already landed.
	ActivityEventNotificationDropped ActivityEventType = "identity.notification.dropped"
)

// ActorRef identifies who/what triggered an event
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	SubjectID  string
	FromState  AccountState
	ToState    AccountState
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
