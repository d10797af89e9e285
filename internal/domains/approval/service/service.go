package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"nivaas/infras/otel"
	"nivaas/infras/whatsapp"
	"nivaas/internal/domains/approval/model/dto"
	bookingModel "nivaas/internal/domains/booking/model"
	bookingRepo "nivaas/internal/domains/booking/repository"
	bookingSvc "nivaas/internal/domains/booking/service"
	paymentSvc "nivaas/internal/domains/payment/service"
	"nivaas/internal/events"
	"nivaas/shared"
	"nivaas/shared/constant"
	"nivaas/shared/dedup"
)

// Approval consumes owner decisions arriving on the messaging webhook and
// drives the booking to its confirmed or cancelled outcome.
type Approval interface {
	HandleEvent(ctx context.Context, event whatsapp.WebhookEvent) (dto.Ack, error)
}

type serviceImpl struct {
	repo      bookingRepo.Booking
	bookings  bookingSvc.Booking
	registry  dedup.Registry
	messenger whatsapp.Client
	publisher events.Publisher
	otel      otel.Otel
}

func New(
	repo bookingRepo.Booking,
	bookings bookingSvc.Booking,
	registry dedup.Registry,
	messenger whatsapp.Client,
	publisher events.Publisher,
	otel otel.Otel,
) Approval {
	return &serviceImpl{
		repo:      repo,
		bookings:  bookings,
		registry:  registry,
		messenger: messenger,
		publisher: publisher,
		otel:      otel,
	}
}

// HandleEvent processes one webhook delivery. Every outcome short of an
// infrastructure failure is an acknowledgment: the messaging platform retries
// on anything else, and retries are handled by the dedup registry, not by
// failing the webhook.
func (s *serviceImpl) HandleEvent(ctx context.Context, event whatsapp.WebhookEvent) (res dto.Ack, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".approval.HandleEvent")
	defer scope.End()
	defer scope.TraceIfError(err)

	reply, messageID := whatsapp.ExtractButtonReply(event)

	if messageID != constant.Empty {
		first, dedupErr := s.registry.Remember(ctx, messageID)
		if dedupErr != nil {
			// Treat the message as unseen. Processing twice is recoverable
			// downstream, silently dropping a decision is not.
			log.Error().Err(dedupErr).Str("messageID", messageID).Msg("dedup registry unavailable")
		}

		if !first {
			log.Info().Str("messageID", messageID).Msg("duplicate webhook delivery ignored")

			return dto.Ignored("duplicate delivery"), nil
		}
	}

	if reply == nil {
		return dto.Ignored("not a button reply"), nil
	}

	var payload paymentSvc.ButtonPayload
	if err := json.Unmarshal([]byte(reply.ButtonID), &payload); err != nil {
		log.Warn().Str("buttonID", reply.ButtonID).Msg("button id is not a decision payload")

		return dto.Ignored("unrecognized button payload"), nil
	}

	if payload.BookingID == constant.Empty {
		return dto.Ignored("payload missing booking id"), nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(payload.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", payload.BookingID).Msg("failed to get booking for decision")

		return res, fmt.Errorf("failed to get booking for decision: %w", err)
	}

	if booking.ID == constant.Empty {
		log.Warn().Str("bookingID", payload.BookingID).Msg("decision references unknown booking")

		return dto.Ignored("booking not found"), nil
	}

	if booking.BookingStatus != bookingModel.StatusBookingRequestSentToOwner {
		log.Info().
			Str("bookingID", booking.ID).
			Str("status", string(booking.BookingStatus)).
			Msg("decision arrived after booking left the pending state")

		return dto.Ignored("booking already processed"), nil
	}

	switch payload.Action {
	case paymentSvc.ActionConfirm:
		return s.confirm(ctx, booking)
	case paymentSvc.ActionCancel:
		return s.cancel(ctx, booking)
	default:
		log.Warn().Str("action", payload.Action).Msg("decision carried unknown action")

		return dto.Ignored("unknown action"), nil
	}
}

func (s *serviceImpl) confirm(ctx context.Context, booking bookingModel.Booking) (res dto.Ack, err error) {
	won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerConfirmed, nil)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to record owner confirmation")

		return res, fmt.Errorf("failed to record owner confirmation: %w", err)
	}

	if !won {
		return dto.Ignored("decision already recorded"), nil
	}

	s.publisher.BookingStatusChanged(ctx, booking, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerConfirmed)

	s.ackOwner(ctx, booking, fmt.Sprintf("Thanks! Booking for %s is confirmed. The guest will receive their ticket shortly.", booking.GuestName))

	if _, workflowErr := s.bookings.ProcessConfirmed(ctx, booking.ID); workflowErr != nil {
		log.Error().Err(workflowErr).Str("bookingID", booking.ID).Msg("post-confirmation workflow failed")
	}

	return dto.Ack{
		Status:    dto.AckProcessed,
		Action:    paymentSvc.ActionConfirm,
		BookingID: booking.ID,
	}, nil
}

func (s *serviceImpl) cancel(ctx context.Context, booking bookingModel.Booking) (res dto.Ack, err error) {
	won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerCancelled, nil)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to record owner cancellation")

		return res, fmt.Errorf("failed to record owner cancellation: %w", err)
	}

	if !won {
		return dto.Ignored("decision already recorded"), nil
	}

	s.publisher.BookingStatusChanged(ctx, booking, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerCancelled)

	s.ackOwner(ctx, booking, fmt.Sprintf("Understood. Booking for %s has been cancelled and the guest will be notified.", booking.GuestName))

	if _, workflowErr := s.bookings.ProcessCancelled(ctx, booking.ID); workflowErr != nil {
		log.Error().Err(workflowErr).Str("bookingID", booking.ID).Msg("post-cancellation workflow failed")
	}

	return dto.Ack{
		Status:    dto.AckProcessed,
		Action:    paymentSvc.ActionCancel,
		BookingID: booking.ID,
	}, nil
}

func (s *serviceImpl) ackOwner(ctx context.Context, booking bookingModel.Booking, message string) {
	if err := s.messenger.SendText(ctx, booking.OwnerPhone, message); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to acknowledge owner decision")
	}
}
