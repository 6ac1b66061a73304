package ports

import (
	"context"

	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// Notifier pushes best-effort real-time signals after durable writes. None of
// its methods report failure to the caller.
type Notifier interface {
	NotifyEntityChange(ctx context.Context, entityType string, action domain.Action, payload any)
	NotifyIdentity(ctx context.Context, identityID int64, notificationType string, data any)
	NotifySystem(ctx context.Context, message, level string)
}

// Pinger is implemented by dependencies probed by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
