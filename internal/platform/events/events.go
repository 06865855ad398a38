// Package events publishes schedule change notifications for downstream
// consumers such as the booking flow.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Change event types.
const (
	VaccineCreated    = "vaccine.created"
	VaccineUpdated    = "vaccine.updated"
	VaccineDeleted    = "vaccine.deleted"
	PolicyUpdated     = "vaccine.policy_updated"
	ServiceDayCreated = "service_day.created"
	ServiceDayUpdated = "service_day.updated"
	ServiceDayDeleted = "service_day.deleted"
	TimeSlotCreated   = "time_slot.created"
	TimeSlotUpdated   = "time_slot.updated"
	TimeSlotDeleted   = "time_slot.deleted"
)

// Event describes one committed change. VaccineID is the partition key so
// changes to a vaccine are consumed in commit order.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	VaccineID  uuid.UUID   `json:"vaccine_id"`
	EntityID   uuid.UUID   `json:"entity_id"`
	Actor      string      `json:"actor,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

// NewEvent stamps a fresh id and the current time.
func NewEvent(eventType string, vaccineID, entityID uuid.UUID, actor string, data interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		VaccineID:  vaccineID,
		EntityID:   entityID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
