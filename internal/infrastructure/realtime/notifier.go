package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/core/domain"
	"github.com/pawhaus/boarding-api/internal/infrastructure/queue"
)

// Notifier turns domain events into envelopes and hands them to the
// registry. It implements ports.Notifier and never reports failure.
type Notifier struct {
	registry   *Registry
	dispatcher *queue.Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

// NewNotifier delivers through dispatcher when given one, and synchronously
// otherwise.
func NewNotifier(registry *Registry, dispatcher *queue.Dispatcher, log zerolog.Logger) *Notifier {
	return &Notifier{
		registry:   registry,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "notifier").Logger(),
		now:        time.Now,
	}
}

// NotifyEntityChange broadcasts a realtime_update on the entity's channel.
// Entity types without a channel are ignored. Account records on the users
// channel only reach identities that may read users; everyone else on that
// channel gets system notices and nothing more.
func (n *Notifier) NotifyEntityChange(ctx context.Context, entityType string, action domain.Action, payload any) {
	ch, ok := domain.ChannelFor(entityType)
	if !ok {
		n.log.Debug().Str("entity_type", entityType).Msg("no channel for entity type")
		return
	}
	msg, ok := n.encode(domain.RealtimeUpdate{
		Type:       domain.EnvelopeRealtimeUpdate,
		EntityType: entityType,
		Action:     action,
		Payload:    payload,
		Timestamp:  n.now().UTC(),
	})
	if !ok {
		return
	}
	var allow func(domain.Identity) bool
	if ch == domain.ChannelUsers {
		allow = func(id domain.Identity) bool { return id.Can(domain.PermReadUser) }
	}
	n.deliver(ctx, "channel:"+string(ch), func(ctx context.Context) {
		n.registry.BroadcastWhere(ctx, ch, msg, allow)
	})
}

// NotifyIdentity delivers a notification only to the connections opened on
// the identity's personal endpoint. Other subscribers of the users channel
// do not see it.
func (n *Notifier) NotifyIdentity(ctx context.Context, identityID int64, notificationType string, data any) {
	msg, ok := n.encode(domain.Notification{
		Type:             domain.EnvelopeNotification,
		NotificationType: notificationType,
		IdentityID:       identityID,
		Data:             data,
		Timestamp:        n.now().UTC(),
	})
	if !ok {
		return
	}
	n.deliver(ctx, "identity:"+strconv.FormatInt(identityID, 10), func(ctx context.Context) {
		n.registry.SendToIdentity(ctx, identityID, msg)
	})
}

// NotifySystem broadcasts an operator message on the users channel.
func (n *Notifier) NotifySystem(ctx context.Context, message, level string) {
	if level == "" {
		level = "info"
	}
	msg, ok := n.encode(domain.SystemNotification{
		Type:      domain.EnvelopeSystem,
		Message:   message,
		Level:     level,
		Timestamp: n.now().UTC(),
	})
	if !ok {
		return
	}
	n.deliver(ctx, "channel:"+string(domain.ChannelUsers), func(ctx context.Context) {
		n.registry.Broadcast(ctx, domain.ChannelUsers, msg)
	})
}

// encode snapshots the envelope at write time so later mutation of the
// payload cannot leak into the delivered message.
func (n *Notifier) encode(v any) ([]byte, bool) {
	msg, err := json.Marshal(v)
	if err != nil {
		n.log.Warn().Err(err).Msg("notification not serialisable, dropped")
		return nil, false
	}
	return msg, true
}

func (n *Notifier) deliver(ctx context.Context, key string, run func(context.Context)) {
	if n.dispatcher != nil {
		n.dispatcher.Enqueue(queue.Job{Key: key, Run: run})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().Interface("panic", r).Str("key", key).Msg("notification delivery panicked")
		}
	}()
	// Request cancellation must not cut a broadcast short.
	run(context.WithoutCancel(ctx))
}
