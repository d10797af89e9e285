package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"nivaas/config"
	"nivaas/infras/otel"
	"nivaas/infras/paytm"
	"nivaas/infras/whatsapp"
	"nivaas/internal/domains/booking/model"
	"nivaas/internal/domains/booking/model/dto"
	"nivaas/internal/domains/booking/repository"
	"nivaas/internal/events"
	"nivaas/shared"
	"nivaas/shared/cache"
	"nivaas/shared/constant"
	"nivaas/shared/failure"
	"nivaas/shared/timezone"
)

const cacheGetBooking = "booking:get"

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	UpdateStatus(ctx context.Context, req dto.UpdateStatusRequest) (dto.BookingResponse, error)
	ProcessConfirmed(ctx context.Context, bookingID string) (dto.BookingResponse, error)
	ProcessCancelled(ctx context.Context, bookingID string) (dto.CancellationResult, error)
	Eticket(ctx context.Context, id string) (dto.BookingResponse, error)
}

type serviceImpl struct {
	repo      repository.Booking
	gateway   paytm.Gateway
	messenger whatsapp.Client
	publisher events.Publisher
	cfg       *config.Config
	cache     cache.RedisCache
	otel      otel.Otel
}

func New(
	repo repository.Booking,
	gateway paytm.Gateway,
	messenger whatsapp.Client,
	publisher events.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:      repo,
		gateway:   gateway,
		messenger: messenger,
		publisher: publisher,
		cfg:       cfg,
		cache:     cache,
		otel:      otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := req.ToModel()
	if err != nil {
		log.Error().Err(err).Msg("failed to parse booking request")

		return res, err
	}

	if err = s.repo.Insert(ctx, booking); err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, fmt.Errorf("failed to create booking: %w", err)
	}

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// UpdateStatus applies a caller-supplied status change. Booking status changes
// must follow the lifecycle transition table and are applied with a
// compare-and-set, so two racing updates from the same state resolve to one
// winner.
func (s *serviceImpl) UpdateStatus(ctx context.Context, req dto.UpdateStatusRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, req.BookingID)
	if err != nil {
		return res, err
	}

	extra := map[string]any{}

	if req.PaymentStatus != "" {
		extra[model.FieldPaymentStatus] = req.PaymentStatus
	}

	if req.OrderID != "" {
		extra[model.FieldOrderID] = req.OrderID
	}

	if req.TransactionID != "" {
		extra[model.FieldTransactionID] = req.TransactionID
	}

	if req.BookingStatus != "" {
		target := model.BookingStatus(req.BookingStatus)

		if err = model.CheckTransition(booking.BookingStatus, target); err != nil {
			return res, err
		}

		won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, booking.BookingStatus, target, extra)
		if err != nil {
			log.Error().Err(err).Msg("failed to update booking status")

			return res, fmt.Errorf("failed to update booking status: %w", err)
		}

		if !won {
			return res, failure.Conflict("booking status changed concurrently") //nolint:wrapcheck
		}

		s.publisher.BookingStatusChanged(ctx, booking, booking.BookingStatus, target)
	} else if len(extra) > 0 {
		extra[constant.FieldUpdatedAt] = timezone.Now()

		if err = s.repo.Update(ctx, extra, shared.FilterByID(booking.ID, model.FieldID, model.TableName)); err != nil {
			log.Error().Err(err).Msg("failed to update booking")

			return res, fmt.Errorf("failed to update booking: %w", err)
		}
	}

	s.invalidate(ctx, booking.ID)

	updated, err := s.getBooking(ctx, booking.ID)
	if err != nil {
		return res, err
	}

	res.FromModel(updated)

	return res, nil
}

// ProcessConfirmed runs the post-confirmation workflow: the booking moves to
// TICKET_GENERATED and the guest receives the ticket link. Notification
// failures are logged but do not undo the transition.
func (s *serviceImpl) ProcessConfirmed(ctx context.Context, bookingID string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ProcessConfirmed")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return res, err
	}

	if booking.BookingStatus != model.StatusOwnerConfirmed {
		return res, failure.WrongState(string(model.StatusOwnerConfirmed), string(booking.BookingStatus)) //nolint:wrapcheck
	}

	won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, model.StatusOwnerConfirmed, model.StatusTicketGenerated, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark ticket generated")

		return res, fmt.Errorf("failed to mark ticket generated: %w", err)
	}

	if !won {
		return res, failure.Conflict("booking already processed") //nolint:wrapcheck
	}

	s.publisher.BookingStatusChanged(ctx, booking, model.StatusOwnerConfirmed, model.StatusTicketGenerated)
	s.invalidate(ctx, booking.ID)

	ticketURL := fmt.Sprintf("%s/eticket/%s", s.cfg.App.FrontendURL, booking.ID)
	guestMessage := fmt.Sprintf(
		"Your booking at %s is confirmed!\n\nCheck-in: %s\nCheck-out: %s\nAmount due at property: %.2f\n\nYour e-ticket: %s",
		booking.PropertyName,
		timezone.Format(booking.CheckinDatetime, constant.DateFormat),
		timezone.Format(booking.CheckoutDatetime, constant.DateFormat),
		booking.DueAmount(),
		ticketURL,
	)

	if sendErr := s.messenger.SendText(ctx, booking.GuestPhone, guestMessage); sendErr != nil {
		log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify guest of confirmation")
	}

	adminMessage := fmt.Sprintf("Booking %s at %s confirmed by owner. Ticket issued to %s. Due: %.2f",
		booking.ID, booking.PropertyName, booking.GuestName, booking.DueAmount())

	if sendErr := s.messenger.SendText(ctx, booking.AdminPhone, adminMessage); sendErr != nil {
		log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify admin of confirmation")
	}

	booking.BookingStatus = model.StatusTicketGenerated
	res.FromModel(booking)

	return res, nil
}

// ProcessCancelled runs the post-cancellation workflow. Paid bookings get a
// refund through the gateway; unpaid ones close without a refund. A recorded
// refund id short-circuits the whole flow, which makes retries of the same
// cancellation safe.
func (s *serviceImpl) ProcessCancelled(ctx context.Context, bookingID string) (res dto.CancellationResult, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ProcessCancelled")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return res, err
	}

	if booking.RefundID != "" {
		log.Info().Str("bookingID", booking.ID).Str("refundID", booking.RefundID).Msg("refund already recorded, skipping")

		return dto.CancellationResult{
			Success:  true,
			RefundID: booking.RefundID,
			Status:   dto.CancellationAlreadyProcessed,
		}, nil
	}

	if booking.BookingStatus != model.StatusOwnerCancelled {
		return res, failure.WrongState(string(model.StatusOwnerCancelled), string(booking.BookingStatus)) //nolint:wrapcheck
	}

	if booking.PaymentStatus != model.PaymentSuccess {
		return s.closeWithoutRefund(ctx, booking)
	}

	return s.refund(ctx, booking)
}

func (s *serviceImpl) refund(ctx context.Context, booking model.Booking) (res dto.CancellationResult, err error) {
	amount := fmt.Sprintf("%.2f", booking.AdvanceAmount)

	refundID, err := s.gateway.Refund(ctx, booking.OrderID, booking.TransactionID, amount)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("refund rejected by gateway")

		if _, casErr := s.repo.UpdateStatusFrom(ctx, booking.ID, model.StatusOwnerCancelled, model.StatusRefundFailed, nil); casErr != nil {
			log.Error().Err(casErr).Str("bookingID", booking.ID).Msg("failed to record refund failure")
		} else {
			s.publisher.BookingStatusChanged(ctx, booking, model.StatusOwnerCancelled, model.StatusRefundFailed)
		}

		s.invalidate(ctx, booking.ID)

		adminMessage := fmt.Sprintf("Refund FAILED for booking %s (order %s, amount %s). Manual intervention required.",
			booking.ID, booking.OrderID, amount)

		if sendErr := s.messenger.SendText(ctx, booking.AdminPhone, adminMessage); sendErr != nil {
			log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify admin of refund failure")
		}

		return res, failure.RefundFailed(err.Error()) //nolint:wrapcheck
	}

	won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, model.StatusOwnerCancelled, model.StatusRefundInitiated, map[string]any{
		model.FieldRefundID: refundID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to record refund")

		return res, fmt.Errorf("failed to record refund: %w", err)
	}

	s.invalidate(ctx, booking.ID)

	if !won {
		// A concurrent run finished first. Its refund id is the durable one.
		current, getErr := s.getBooking(ctx, booking.ID)
		if getErr != nil {
			return res, getErr
		}

		return dto.CancellationResult{
			Success:  true,
			RefundID: current.RefundID,
			Status:   dto.CancellationAlreadyProcessed,
		}, nil
	}

	s.publisher.BookingStatusChanged(ctx, booking, model.StatusOwnerCancelled, model.StatusRefundInitiated)

	guestMessage := fmt.Sprintf(
		"Your booking at %s has been cancelled by the owner. A refund of %s has been initiated and will reach your account in 5-7 business days.",
		booking.PropertyName, amount,
	)

	if sendErr := s.messenger.SendText(ctx, booking.GuestPhone, guestMessage); sendErr != nil {
		log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify guest of refund")
	}

	adminMessage := fmt.Sprintf("Refund %s initiated for booking %s (order %s, amount %s).",
		refundID, booking.ID, booking.OrderID, amount)

	if sendErr := s.messenger.SendText(ctx, booking.AdminPhone, adminMessage); sendErr != nil {
		log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify admin of refund")
	}

	return dto.CancellationResult{
		Success:  true,
		RefundID: refundID,
		Status:   string(model.StatusRefundInitiated),
	}, nil
}

func (s *serviceImpl) closeWithoutRefund(ctx context.Context, booking model.Booking) (res dto.CancellationResult, err error) {
	won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, model.StatusOwnerCancelled, model.StatusCancelledNoRefund, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to close booking without refund")

		return res, fmt.Errorf("failed to close booking without refund: %w", err)
	}

	s.invalidate(ctx, booking.ID)

	if !won {
		return dto.CancellationResult{
			Success: true,
			Status:  dto.CancellationAlreadyProcessed,
		}, nil
	}

	s.publisher.BookingStatusChanged(ctx, booking, model.StatusOwnerCancelled, model.StatusCancelledNoRefund)

	guestMessage := fmt.Sprintf(
		"Your booking at %s has been cancelled by the owner. No payment was captured, so there is nothing to refund.",
		booking.PropertyName,
	)

	if sendErr := s.messenger.SendText(ctx, booking.GuestPhone, guestMessage); sendErr != nil {
		log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify guest of cancellation")
	}

	adminMessage := fmt.Sprintf("Booking %s at %s cancelled by owner. Payment never succeeded, no refund applies.",
		booking.ID, booking.PropertyName)

	if sendErr := s.messenger.SendText(ctx, booking.AdminPhone, adminMessage); sendErr != nil {
		log.Error().Err(sendErr).Str("bookingID", booking.ID).Msg("failed to notify admin of cancellation")
	}

	return dto.CancellationResult{
		Success: true,
		Status:  string(model.StatusCancelledNoRefund),
	}, nil
}

// Eticket serves the guest-facing ticket. The ticket only exists once the
// owner has confirmed, and it expires with the stay.
func (s *serviceImpl) Eticket(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Eticket")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	if booking.BookingStatus != model.StatusTicketGenerated {
		return res, failure.Forbidden(fmt.Sprintf("ticket not available in %s status", booking.BookingStatus)) //nolint:wrapcheck
	}

	if timezone.Now().After(booking.CheckoutDatetime) {
		return res, failure.Gone("ticket expired") //nolint:wrapcheck
	}

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) getBooking(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(model.EntityName) //nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
			log.Error().Err(err).Str("bookingID", id).Msg("failed to invalidate booking cache")
		}
	}()
}
