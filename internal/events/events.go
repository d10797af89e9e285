package events

//go:generate go run go.uber.org/mock/mockgen -source=./events.go -destination=./mocks/events_mock.go -package=mocks

import (
	"context"

	"github.com/rs/zerolog/log"

	"nivaas/config"
	"nivaas/infras/kafka"
	"nivaas/internal/domains/booking/model"
	"nivaas/shared/constant"
	"nivaas/shared/timezone"
)

const TypeStatusChanged = "booking.status_changed"

// StatusChangedEvent is the audit record emitted on every booking lifecycle
// transition.
type StatusChangedEvent struct {
	Type          string `json:"type"`
	BookingID     string `json:"booking_id"`
	OrderID       string `json:"order_id,omitempty"`
	PropertyID    string `json:"property_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	PaymentStatus string `json:"payment_status"`
	OccurredAt    string `json:"occurred_at"`
}

// Publisher emits booking lifecycle events to the audit stream. Delivery is
// best effort: publish failures are logged and never fail the transition that
// produced them.
type Publisher interface {
	BookingStatusChanged(ctx context.Context, booking model.Booking, from, to model.BookingStatus)
}

type publisherImpl struct {
	cfg    *config.Config
	client kafka.Client
}

func NewPublisher(cfg *config.Config, client kafka.Client) Publisher {
	return &publisherImpl{
		cfg:    cfg,
		client: client,
	}
}

func (p *publisherImpl) BookingStatusChanged(ctx context.Context, booking model.Booking, from, to model.BookingStatus) {
	if !p.cfg.Kafka.Enable {
		return
	}

	event := StatusChangedEvent{
		Type:          TypeStatusChanged,
		BookingID:     booking.ID,
		OrderID:       booking.OrderID,
		PropertyID:    booking.PropertyID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		PaymentStatus: string(booking.PaymentStatus),
		OccurredAt:    timezone.Format(timezone.Now(), constant.DateFormat),
	}

	err := p.client.SendMessages(ctx, p.cfg.Kafka.EventTopic, kafka.Message{
		Key:   booking.ID,
		Value: event,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("bookingID", booking.ID).
			Str("toStatus", string(to)).
			Msg("failed to publish booking event")
	}
}
