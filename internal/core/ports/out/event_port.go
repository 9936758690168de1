package out

import (
	"context"
	"time"
)

type InvalidationReason string

const (
	InvalidationReasonBooking InvalidationReason = "booking"
)

type AvailabilityInvalidatedEvent struct {
	ID         string             `json:"id"`
	Monday     string             `json:"monday"`
	Origin     string             `json:"origin"`
	Reason     InvalidationReason `json:"reason"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// EventPublisherPort оповещает другие инстансы об инвалидации недели
type EventPublisherPort interface {
	PublishAvailabilityInvalidated(ctx context.Context, event AvailabilityInvalidatedEvent) error
}
