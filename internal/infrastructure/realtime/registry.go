// Package realtime holds websocket connections and fans best-effort
// notifications out to them.
package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pawhaus/boarding-api/internal/api/metrics"
	"github.com/pawhaus/boarding-api/internal/core/domain"
)

// Registry tracks live connections per channel and per identity. Membership
// is snapshotted under the read lock and sends happen outside it, so slow or
// failing sockets never block joins, leaves or other broadcasts.
type Registry struct {
	mu         sync.RWMutex
	channels   map[domain.Channel]map[string]Conn
	identities map[int64]map[string]Conn
	log        zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		channels:   make(map[domain.Channel]map[string]Conn),
		identities: make(map[int64]map[string]Conn),
		log:        log.With().Str("component", "registry").Logger(),
	}
}

// Join subscribes c to channel. Joining twice keeps a single handle.
func (r *Registry) Join(c Conn, channel domain.Channel) {
	r.mu.Lock()
	bucket, ok := r.channels[channel]
	if !ok {
		bucket = make(map[string]Conn)
		r.channels[channel] = bucket
	}
	bucket[c.ID()] = c
	n := len(bucket)
	r.mu.Unlock()

	metrics.Connections.WithLabelValues(string(channel)).Set(float64(n))
}

// Leave unsubscribes c from channel. Unknown handles are ignored.
func (r *Registry) Leave(c Conn, channel domain.Channel) {
	r.mu.Lock()
	n := r.leaveLocked(c.ID(), channel)
	r.mu.Unlock()

	metrics.Connections.WithLabelValues(string(channel)).Set(float64(n))
}

// JoinIdentity indexes c under its owning identity for direct delivery.
func (r *Registry) JoinIdentity(c Conn, identityID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.identities[identityID]
	if !ok {
		bucket = make(map[string]Conn)
		r.identities[identityID] = bucket
	}
	bucket[c.ID()] = c
}

func (r *Registry) LeaveIdentity(c Conn, identityID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveIdentityLocked(c.ID(), identityID)
}

// Remove drops every handle held by c.
func (r *Registry) Remove(c Conn) {
	r.evict(c.ID())
}

// Broadcast sends msg to every connection on channel and returns how many
// deliveries succeeded. Connections whose send fails are evicted and closed
// in the same pass; the remaining ones still receive msg.
func (r *Registry) Broadcast(ctx context.Context, channel domain.Channel, msg []byte) int {
	return r.BroadcastWhere(ctx, channel, msg, nil)
}

// BroadcastWhere is Broadcast restricted to connections whose identity
// passes allow. A nil allow admits everyone.
func (r *Registry) BroadcastWhere(ctx context.Context, channel domain.Channel, msg []byte, allow func(domain.Identity) bool) int {
	r.mu.RLock()
	targets := snapshot(r.channels[channel])
	r.mu.RUnlock()

	if allow != nil {
		kept := targets[:0]
		for _, c := range targets {
			if allow(c.Identity()) {
				kept = append(kept, c)
			}
		}
		targets = kept
	}
	return r.deliver(ctx, string(channel), targets, msg)
}

// SendToIdentity sends msg to the connections indexed under identityID.
func (r *Registry) SendToIdentity(ctx context.Context, identityID int64, msg []byte) int {
	r.mu.RLock()
	targets := snapshot(r.identities[identityID])
	r.mu.RUnlock()

	return r.deliver(ctx, string(domain.ChannelUsers), targets, msg)
}

// Count returns live subscriptions on channel, or across all channels when
// channel is empty.
func (r *Registry) Count(channel domain.Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if channel != "" {
		return len(r.channels[channel])
	}
	n := 0
	for _, bucket := range r.channels {
		n += len(bucket)
	}
	return n
}

// IdentityCount returns how many connections are indexed under identityID.
func (r *Registry) IdentityCount(identityID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities[identityID])
}

// CloseAll closes and forgets every connection.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	all := make(map[string]Conn)
	for ch, bucket := range r.channels {
		for id, c := range bucket {
			all[id] = c
		}
		metrics.Connections.WithLabelValues(string(ch)).Set(0)
	}
	for _, bucket := range r.identities {
		for id, c := range bucket {
			all[id] = c
		}
	}
	r.channels = make(map[domain.Channel]map[string]Conn)
	r.identities = make(map[int64]map[string]Conn)
	r.mu.Unlock()

	for _, c := range all {
		c.Close(reason)
	}
}

func (r *Registry) deliver(ctx context.Context, label string, targets []Conn, msg []byte) int {
	sent := 0
	var failed []Conn
	for _, c := range targets {
		if err := c.Send(ctx, msg); err != nil {
			r.log.Warn().Err(err).Str("channel", label).Str("conn_id", c.ID()).Msg("send failed, evicting connection")
			failed = append(failed, c)
			continue
		}
		sent++
	}
	if sent > 0 {
		metrics.MessagesSentTotal.WithLabelValues(label).Add(float64(sent))
	}
	for _, c := range failed {
		r.evict(c.ID())
		c.Close("send failed")
		metrics.EvictionsTotal.WithLabelValues(label).Inc()
	}
	return sent
}

func (r *Registry) evict(connID string) {
	r.mu.Lock()
	counts := make(map[domain.Channel]int)
	for ch, bucket := range r.channels {
		if _, ok := bucket[connID]; ok {
			counts[ch] = r.leaveLocked(connID, ch)
		}
	}
	for id := range r.identities {
		r.leaveIdentityLocked(connID, id)
	}
	r.mu.Unlock()

	for ch, n := range counts {
		metrics.Connections.WithLabelValues(string(ch)).Set(float64(n))
	}
}

func (r *Registry) leaveLocked(connID string, channel domain.Channel) int {
	bucket := r.channels[channel]
	delete(bucket, connID)
	if len(bucket) == 0 {
		delete(r.channels, channel)
		return 0
	}
	return len(bucket)
}

func (r *Registry) leaveIdentityLocked(connID string, identityID int64) {
	bucket := r.identities[identityID]
	delete(bucket, connID)
	if len(bucket) == 0 {
		delete(r.identities, identityID)
	}
}

func snapshot(bucket map[string]Conn) []Conn {
	out := make([]Conn, 0, len(bucket))
	for _, c := range bucket {
		out = append(out, c)
	}
	return out
}
