package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"nivaas/config"
	"nivaas/infras/otel"
	"nivaas/infras/paytm"
	"nivaas/infras/whatsapp"
	bookingModel "nivaas/internal/domains/booking/model"
	bookingRepo "nivaas/internal/domains/booking/repository"
	"nivaas/internal/domains/payment/model/dto"
	"nivaas/internal/events"
	"nivaas/shared"
	"nivaas/shared/checksum"
	"nivaas/shared/constant"
	gDto "nivaas/shared/dto"
	"nivaas/shared/failure"
	"nivaas/shared/timezone"
)

// Owner decision actions carried inside the reply button id.
const (
	ActionConfirm = "CONFIRM"
	ActionCancel  = "CANCEL"
)

// Gateway channel identifiers. Web checkout is the default.
const (
	ChannelWeb    = "WEB"
	ChannelMobile = "WAP"
)

// ButtonPayload is the structured payload encoded into each reply button id.
// It round-trips verbatim through the messaging platform.
type ButtonPayload struct {
	BookingID string `json:"booking_id"`
	Action    string `json:"action"`
}

type Payment interface {
	Initiate(ctx context.Context, req dto.InitiatePaymentRequest) (dto.InitiatePaymentResponse, error)
	ProcessCallback(ctx context.Context, params map[string]string) (dto.CallbackResult, error)
}

type serviceImpl struct {
	repo      bookingRepo.Booking
	messenger whatsapp.Client
	publisher events.Publisher
	cfg       *config.Config
	otel      otel.Otel
}

func New(
	repo bookingRepo.Booking,
	messenger whatsapp.Client,
	publisher events.Publisher,
	cfg *config.Config,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		repo:      repo,
		messenger: messenger,
		publisher: publisher,
		cfg:       cfg,
		otel:      otel,
	}
}

// Initiate prepares a signed payment intent for the gateway's hosted page.
// The generated order id is persisted on the booking before the intent is
// handed out, so the later callback can always be tied back to a booking.
func (s *serviceImpl) Initiate(ctx context.Context, req dto.InitiatePaymentRequest) (res dto.InitiatePaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.Initiate")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, req.BookingID)
	if err != nil {
		return res, err
	}

	if booking.PaymentStatus == bookingModel.PaymentSuccess {
		return res, failure.AlreadyPaidError //nolint:wrapcheck
	}

	orderID := paytm.GenerateOrderID()

	channel := req.Channel
	if channel == constant.Empty {
		channel = ChannelWeb
	}

	params := map[string]string{
		paytm.FieldMID:          s.cfg.Paytm.MID,
		paytm.FieldWebsite:      s.cfg.Paytm.Website,
		paytm.FieldIndustryType: s.cfg.Paytm.IndustryType,
		paytm.FieldChannelID:    channel,
		paytm.FieldOrderID:      orderID,
		paytm.FieldCustomerID:   booking.GuestPhone,
		paytm.FieldMobileNumber: booking.GuestPhone,
		paytm.FieldEmail:        booking.GuestPhone + "@guest.com",
		paytm.FieldTxnAmount:    fmt.Sprintf("%.2f", booking.AdvanceAmount),
		paytm.FieldCallbackURL:  s.cfg.Paytm.CallbackURL,
	}

	signature, err := checksum.Sign(params, s.cfg.Paytm.MerchantKey)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to sign payment intent")

		return res, fmt.Errorf("failed to sign payment intent: %w", err)
	}

	params[checksum.FieldChecksum] = signature

	update := map[string]any{
		bookingModel.FieldOrderID: orderID,
		constant.FieldUpdatedAt:   timezone.Now(),
	}

	if err = s.repo.Update(ctx, update, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to record order id")

		return res, fmt.Errorf("failed to record order id: %w", err)
	}

	log.Info().
		Str("bookingID", booking.ID).
		Str("orderID", orderID).
		Msg("payment intent prepared")

	return dto.InitiatePaymentResponse{
		OrderID:    orderID,
		GatewayURL: s.cfg.Paytm.GatewayURL,
		Params:     params,
	}, nil
}

// ProcessCallback reconciles a gateway callback against the booking it
// references. The signature is verified before any state is touched: a missing
// or invalid checksum leaves the booking exactly as it was.
func (s *serviceImpl) ProcessCallback(ctx context.Context, params map[string]string) (res dto.CallbackResult, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.ProcessCallback")
	defer scope.End()
	defer scope.TraceIfError(err)

	signature, ok := params[checksum.FieldChecksum]
	if !ok || signature == constant.Empty {
		return res, failure.ChecksumMissingError //nolint:wrapcheck
	}

	if !checksum.Verify(params, s.cfg.Paytm.MerchantKey, signature) {
		log.Warn().Str("orderID", params[paytm.CallbackFieldOrderID]).Msg("callback rejected: checksum mismatch")

		return res, failure.InvalidChecksumError //nolint:wrapcheck
	}

	orderID := params[paytm.CallbackFieldOrderID]

	booking, err := s.getBookingByOrderID(ctx, orderID)
	if err != nil {
		return res, err
	}

	status := params[paytm.CallbackFieldStatus]

	switch status {
	case paytm.StatusTxnSuccess:
		return s.settleSuccess(ctx, booking, params)
	case paytm.StatusTxnFailure:
		return s.settle(ctx, booking, orderID, bookingModel.PaymentFailed, params)
	case paytm.StatusPending:
		return s.settle(ctx, booking, orderID, bookingModel.PaymentPending, params)
	default:
		log.Warn().Str("orderID", orderID).Str("status", status).Msg("callback carried unknown transaction status")

		return s.settle(ctx, booking, orderID, bookingModel.PaymentFailed, params)
	}
}

func (s *serviceImpl) settleSuccess(ctx context.Context, booking bookingModel.Booking, params map[string]string) (res dto.CallbackResult, err error) {
	transactionID := params[paytm.CallbackFieldTxnID]

	won, err := s.repo.UpdateStatusFrom(ctx, booking.ID, bookingModel.StatusPaymentPending, bookingModel.StatusPaymentSuccess, map[string]any{
		bookingModel.FieldPaymentStatus: bookingModel.PaymentSuccess,
		bookingModel.FieldTransactionID: transactionID,
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to record payment success")

		return res, fmt.Errorf("failed to record payment success: %w", err)
	}

	if !won {
		// A duplicate callback already settled this payment. Nothing left to do.
		log.Info().Str("bookingID", booking.ID).Msg("duplicate payment callback ignored")

		return s.result(booking, bookingModel.PaymentSuccess, booking.BookingStatus, "payment already settled"), nil
	}

	s.publisher.BookingStatusChanged(ctx, booking, bookingModel.StatusPaymentPending, bookingModel.StatusPaymentSuccess)

	booking.PaymentStatus = bookingModel.PaymentSuccess
	booking.TransactionID = transactionID

	s.notifyPaymentReceived(ctx, booking)

	won, err = s.repo.UpdateStatusFrom(ctx, booking.ID, bookingModel.StatusPaymentSuccess, bookingModel.StatusBookingRequestSentToOwner, nil)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to mark booking request sent")

		return res, fmt.Errorf("failed to mark booking request sent: %w", err)
	}

	finalStatus := bookingModel.StatusBookingRequestSentToOwner
	if !won {
		finalStatus = bookingModel.StatusPaymentSuccess
	} else {
		s.publisher.BookingStatusChanged(ctx, booking, bookingModel.StatusPaymentSuccess, bookingModel.StatusBookingRequestSentToOwner)
	}

	return s.result(booking, bookingModel.PaymentSuccess, finalStatus, "payment successful"), nil
}

func (s *serviceImpl) settle(
	ctx context.Context,
	booking bookingModel.Booking,
	orderID string,
	payment bookingModel.PaymentStatus,
	params map[string]string,
) (res dto.CallbackResult, err error) {
	update := map[string]any{
		bookingModel.FieldPaymentStatus: payment,
		constant.FieldUpdatedAt:         timezone.Now(),
	}

	if txnID := params[paytm.CallbackFieldTxnID]; txnID != constant.Empty {
		update[bookingModel.FieldTransactionID] = txnID
	}

	if err = s.repo.Update(ctx, update, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
		log.Error().Err(err).Str("orderID", orderID).Msg("failed to record payment status")

		return res, fmt.Errorf("failed to record payment status: %w", err)
	}

	message := params[paytm.CallbackFieldRespMsg]
	if message == constant.Empty {
		message = "payment " + string(payment)
	}

	return s.result(booking, payment, booking.BookingStatus, message), nil
}

// notifyPaymentReceived fans the payment confirmation out to the guest, the
// owner, and the admin, in that order. The owner message carries the
// confirm/cancel reply buttons that drive the approval flow. Failures are
// logged and do not fail the settlement.
func (s *serviceImpl) notifyPaymentReceived(ctx context.Context, booking bookingModel.Booking) {
	guestMessage := fmt.Sprintf(
		"We received your advance payment of %.2f for %s. The owner has been asked to confirm your booking.",
		booking.AdvanceAmount, booking.PropertyName,
	)

	if err := s.messenger.SendText(ctx, booking.GuestPhone, guestMessage); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to notify guest of payment")
	}

	buttons, err := s.decisionButtons(booking.ID)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to build owner decision buttons")
	} else {
		ownerMessage := fmt.Sprintf(
			"New booking request for %s\nGuest: %s (%s)\nCheck-in: %s\nCheck-out: %s\nAdvance paid: %.2f",
			booking.PropertyName,
			booking.GuestName,
			booking.GuestPhone,
			timezone.Format(booking.CheckinDatetime, constant.DateFormat),
			timezone.Format(booking.CheckoutDatetime, constant.DateFormat),
			booking.AdvanceAmount,
		)

		if err := s.messenger.SendButtons(ctx, booking.OwnerPhone, ownerMessage, buttons); err != nil {
			log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to send owner decision request")
		}
	}

	adminMessage := fmt.Sprintf("Payment received for booking %s (%s). Awaiting owner decision.",
		booking.ID, booking.PropertyName)

	if err := s.messenger.SendText(ctx, booking.AdminPhone, adminMessage); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to notify admin of payment")
	}
}

func (s *serviceImpl) decisionButtons(bookingID string) ([]whatsapp.Button, error) {
	confirm, err := json.Marshal(ButtonPayload{BookingID: bookingID, Action: ActionConfirm})
	if err != nil {
		return nil, fmt.Errorf("failed to encode confirm payload: %w", err)
	}

	cancel, err := json.Marshal(ButtonPayload{BookingID: bookingID, Action: ActionCancel})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cancel payload: %w", err)
	}

	return []whatsapp.Button{
		{ID: string(confirm), Title: "Confirm"},
		{ID: string(cancel), Title: "Cancel"},
	}, nil
}

func (s *serviceImpl) result(booking bookingModel.Booking, payment bookingModel.PaymentStatus, status bookingModel.BookingStatus, message string) dto.CallbackResult {
	redirect := fmt.Sprintf("%s/ticket?booking_id=%s", s.cfg.App.FrontendURL, booking.ID)
	if payment != bookingModel.PaymentSuccess {
		redirect = fmt.Sprintf("%s/payment-failed?order_id=%s", s.cfg.App.FrontendURL, booking.OrderID)
	}

	return dto.CallbackResult{
		BookingID:     booking.ID,
		OrderID:       booking.OrderID,
		PaymentStatus: string(payment),
		BookingStatus: string(status),
		Message:       message,
		RedirectURL:   redirect,
	}
}

func (s *serviceImpl) getBooking(ctx context.Context, id string) (bookingModel.Booking, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(bookingModel.EntityName) //nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) getBookingByOrderID(ctx context.Context, orderID string) (bookingModel.Booking, error) {
	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    bookingModel.FieldOrderID,
				Value:    orderID,
				Operator: gDto.FilterOperatorEq,
				Table:    bookingModel.TableName,
			},
		},
	}

	booking, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("orderID", orderID).Msg("failed to get booking by order id")

		return booking, fmt.Errorf("failed to get booking by order id: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(bookingModel.EntityName) //nolint:wrapcheck
	}

	return booking, nil
}
