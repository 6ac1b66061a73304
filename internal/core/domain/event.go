package domain

import (
	"strings"
	"time"
)

// Channel names a real-time fan-out bucket.
type Channel string

const (
	ChannelPets           Channel = "pets"
	ChannelReservations   Channel = "reservations"
	ChannelPayments       Channel = "payments"
	ChannelInvoices       Channel = "invoices"
	ChannelMedicalHistory Channel = "medical_history"
	ChannelServices       Channel = "services"
	ChannelEmployees      Channel = "employees"
	ChannelActivityLogs   Channel = "activity_logs"
	ChannelUsers          Channel = "users"
)

// Channels is the fixed, pre-declared set of channels.
var Channels = []Channel{
	ChannelPets,
	ChannelReservations,
	ChannelPayments,
	ChannelInvoices,
	ChannelMedicalHistory,
	ChannelServices,
	ChannelEmployees,
	ChannelActivityLogs,
	ChannelUsers,
}

// ChannelPaths lists the URL segments c is served under: its name and, for
// multi-word channels, the hyphenated form.
func ChannelPaths(c Channel) []string {
	name := string(c)
	if alias := strings.ReplaceAll(name, "_", "-"); alias != name {
		return []string{name, alias}
	}
	return []string{name}
}

// OwnedChannel reports whether c carries records that belong to one identity.
// Only staff subscribe to these; owners hear about their own records on the
// personal endpoint.
func OwnedChannel(c Channel) bool {
	switch c {
	case ChannelPets, ChannelReservations, ChannelPayments, ChannelInvoices, ChannelMedicalHistory:
		return true
	}
	return false
}

// ChannelFor maps an entity type to its channel. Entity types are the
// resource family names, which equal the channel names; assignments have no
// channel.
func ChannelFor(entityType string) (Channel, bool) {
	for _, c := range Channels {
		if string(c) == entityType {
			return c, true
		}
	}
	return "", false
}

// ChannelReadPermission is the capability required to subscribe to c.
func ChannelReadPermission(c Channel) Permission {
	switch c {
	case ChannelPets:
		return PermReadPet
	case ChannelReservations:
		return PermReadReservation
	case ChannelPayments:
		return PermReadPayment
	case ChannelInvoices:
		return PermReadInvoice
	case ChannelMedicalHistory:
		return PermReadMedicalHistory
	case ChannelServices:
		return PermReadService
	case ChannelEmployees:
		return PermReadEmployee
	case ChannelActivityLogs:
		return PermViewLogs
	default:
		return PermReadUser
	}
}

// Action is the kind of write that produced a DomainEvent.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// DomainEvent is produced by a successful write and consumed immediately by
// the notifier. It is never persisted.
type DomainEvent struct {
	EntityType string
	Action     Action
	Payload    any
}

// Envelope types sent over websockets.
const (
	EnvelopeRealtimeUpdate = "realtime_update"
	EnvelopeNotification   = "notification"
	EnvelopeSystem         = "system_notification"
)

type RealtimeUpdate struct {
	Type       string    `json:"type"`
	EntityType string    `json:"entity_type"`
	Action     Action    `json:"action"`
	Payload    any       `json:"payload"`
	Timestamp  time.Time `json:"timestamp"`
}

type Notification struct {
	Type             string    `json:"type"`
	NotificationType string    `json:"notification_type"`
	IdentityID       int64     `json:"identity_id"`
	Data             any       `json:"data"`
	Timestamp        time.Time `json:"timestamp"`
}

type SystemNotification struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}
