package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountRegistered ActivityEventType = "account.registered"
	ActivityEventAccountApproved   ActivityEventType = "account.approved"
	ActivityEventAccountRejected   ActivityEventType = "account.rejected"
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventLoginRefused      ActivityEventType = "auth.login.refused"
	ActivityEventAccountLocked     ActivityEventType = "auth.account.locked"
)

// ActorRef identifies who triggered an event. The zero value is the account itself.
type ActorRef struct {
	ID   uuid.UUID `json:"id,omitempty"`
	Role Role      `json:"role,omitempty"`
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	ID         uuid.UUID         `json:"id"`
	EventType  ActivityEventType `json:"event_type"`
	Actor      ActorRef          `json:"actor"`
	AccountID  uuid.UUID         `json:"account_id,omitempty"`
	Role       Role              `json:"role,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
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

// activityRecorder stamps and forwards events, logging sink failures
type activityRecorder struct {
	sink   ActivitySink
	logger Logger
	clock  func() time.Time
}

func (r activityRecorder) record(ctx context.Context, event ActivityEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.clock().UTC()
	}
	if event.IP == "" {
		event.IP = ClientIPFromContext(ctx)
	}
	if event.Actor.ID == uuid.Nil {
		if p, ok := PrincipalFromContext(ctx); ok {
			event.Actor = ActorRef{ID: p.AccountID, Role: p.Role}
		}
	}
	if err := r.sink.Record(ctx, event); err != nil {
		r.logger.Error("activity sink failed to record %s: %v", event.EventType, err)
	}
}
