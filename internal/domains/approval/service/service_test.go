package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nivaas/infras/otel/mocks"
	"nivaas/infras/whatsapp"
	waMocks "nivaas/infras/whatsapp/mocks"
	"nivaas/internal/domains/approval/model/dto"
	"nivaas/internal/domains/approval/service"
	bookingModel "nivaas/internal/domains/booking/model"
	bookingDto "nivaas/internal/domains/booking/model/dto"
	repoMocks "nivaas/internal/domains/booking/repository/mocks"
	bookingMocks "nivaas/internal/domains/booking/service/mocks"
	paymentSvc "nivaas/internal/domains/payment/service"
	eventMocks "nivaas/internal/events/mocks"
	dedupMocks "nivaas/shared/dedup/mocks"
)

type fixture struct {
	repo      *repoMocks.MockBooking
	bookings  *bookingMocks.MockBooking
	registry  *dedupMocks.MockRegistry
	messenger *waMocks.MockClient
	publisher *eventMocks.MockPublisher
	svc       service.Approval
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	repo := repoMocks.NewMockBooking(ctrl)
	bookings := bookingMocks.NewMockBooking(ctrl)
	registry := dedupMocks.NewMockRegistry(ctrl)
	messenger := waMocks.NewMockClient(ctrl)
	publisher := eventMocks.NewMockPublisher(ctrl)

	svc := service.New(repo, bookings, registry, messenger, publisher, mocks.NewOtel())

	return fixture{
		repo:      repo,
		bookings:  bookings,
		registry:  registry,
		messenger: messenger,
		publisher: publisher,
		svc:       svc,
	}
}

func buttonEvent(t *testing.T, messageID, bookingID, action string) whatsapp.WebhookEvent {
	t.Helper()

	payload, err := json.Marshal(paymentSvc.ButtonPayload{BookingID: bookingID, Action: action})
	require.NoError(t, err)

	raw := fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"id": %q,
						"from": "919887654321",
						"type": "interactive",
						"interactive": {
							"type": "button_reply",
							"button_reply": {"id": %q, "title": "Confirm"}
						}
					}]
				}
			}]
		}]
	}`, messageID, string(payload))

	var event whatsapp.WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	return event
}

func pendingBooking() bookingModel.Booking {
	return bookingModel.Booking{
		ID:            "b-1",
		GuestName:     "Asha",
		GuestPhone:    "919812345678",
		OwnerPhone:    "919887654321",
		AdminPhone:    "919800000000",
		PaymentStatus: bookingModel.PaymentSuccess,
		BookingStatus: bookingModel.StatusBookingRequestSentToOwner,
	}
}

func TestApproval_HandleEvent_Confirm(t *testing.T) {
	f := newFixture(t)

	booking := pendingBooking()
	event := buttonEvent(t, "wamid.1", booking.ID, paymentSvc.ActionConfirm)

	f.registry.EXPECT().
		Remember(gomock.Any(), "wamid.1").
		Return(true, nil)

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerConfirmed, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerConfirmed)

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.OwnerPhone, gomock.Any()).
		Return(nil)

	f.bookings.EXPECT().
		ProcessConfirmed(gomock.Any(), booking.ID).
		Return(bookingDto.BookingResponse{}, nil)

	ack, err := f.svc.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, dto.AckProcessed, ack.Status)
	assert.Equal(t, paymentSvc.ActionConfirm, ack.Action)
	assert.Equal(t, booking.ID, ack.BookingID)
}

func TestApproval_HandleEvent_Cancel(t *testing.T) {
	f := newFixture(t)

	booking := pendingBooking()
	event := buttonEvent(t, "wamid.2", booking.ID, paymentSvc.ActionCancel)

	f.registry.EXPECT().
		Remember(gomock.Any(), "wamid.2").
		Return(true, nil)

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerCancelled, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerCancelled)

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.OwnerPhone, gomock.Any()).
		Return(nil)

	f.bookings.EXPECT().
		ProcessCancelled(gomock.Any(), booking.ID).
		Return(bookingDto.CancellationResult{Success: true}, nil)

	ack, err := f.svc.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, dto.AckProcessed, ack.Status)
	assert.Equal(t, paymentSvc.ActionCancel, ack.Action)
}

func TestApproval_HandleEvent_DuplicateDelivery(t *testing.T) {
	f := newFixture(t)

	event := buttonEvent(t, "wamid.dup", "b-1", paymentSvc.ActionConfirm)

	f.registry.EXPECT().
		Remember(gomock.Any(), "wamid.dup").
		Return(false, nil)

	ack, err := f.svc.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, dto.AckIgnored, ack.Status)
	assert.Equal(t, "duplicate delivery", ack.Reason)
}

func TestApproval_HandleEvent_Ignored(t *testing.T) {
	tests := []struct {
		name      string
		event     func(t *testing.T) whatsapp.WebhookEvent
		setupMock func(f fixture)
		reason    string
	}{
		{
			name: "plain text message",
			event: func(t *testing.T) whatsapp.WebhookEvent {
				raw := `{"entry":[{"changes":[{"value":{"messages":[{"id":"wamid.t","from":"9198","type":"text"}]}}]}]}`

				var event whatsapp.WebhookEvent
				require.NoError(t, json.Unmarshal([]byte(raw), &event))

				return event
			},
			setupMock: func(f fixture) {
				f.registry.EXPECT().
					Remember(gomock.Any(), "wamid.t").
					Return(true, nil)
			},
			reason: "not a button reply",
		},
		{
			name: "empty event",
			event: func(_ *testing.T) whatsapp.WebhookEvent {
				return whatsapp.WebhookEvent{}
			},
			reason: "not a button reply",
		},
		{
			name: "garbage button payload",
			event: func(t *testing.T) whatsapp.WebhookEvent {
				raw := `{"entry":[{"changes":[{"value":{"messages":[{"id":"wamid.g","from":"9198","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"not-json","title":"?"}}}]}}]}]}`

				var event whatsapp.WebhookEvent
				require.NoError(t, json.Unmarshal([]byte(raw), &event))

				return event
			},
			setupMock: func(f fixture) {
				f.registry.EXPECT().
					Remember(gomock.Any(), "wamid.g").
					Return(true, nil)
			},
			reason: "unrecognized button payload",
		},
		{
			name: "unknown booking",
			event: func(t *testing.T) whatsapp.WebhookEvent {
				return buttonEvent(t, "wamid.u", "ghost", paymentSvc.ActionConfirm)
			},
			setupMock: func(f fixture) {
				f.registry.EXPECT().
					Remember(gomock.Any(), "wamid.u").
					Return(true, nil)

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(bookingModel.Booking{}, nil)
			},
			reason: "booking not found",
		},
		{
			name: "booking already decided",
			event: func(t *testing.T) whatsapp.WebhookEvent {
				return buttonEvent(t, "wamid.l", "b-1", paymentSvc.ActionConfirm)
			},
			setupMock: func(f fixture) {
				f.registry.EXPECT().
					Remember(gomock.Any(), "wamid.l").
					Return(true, nil)

				booking := pendingBooking()
				booking.BookingStatus = bookingModel.StatusOwnerConfirmed

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)
			},
			reason: "booking already processed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			ack, err := f.svc.HandleEvent(context.Background(), tt.event(t))

			require.NoError(t, err)
			assert.Equal(t, dto.AckIgnored, ack.Status)
			assert.Equal(t, tt.reason, ack.Reason)
		})
	}
}

func TestApproval_HandleEvent_DedupFailureStillProcesses(t *testing.T) {
	f := newFixture(t)

	booking := pendingBooking()
	event := buttonEvent(t, "wamid.e", booking.ID, paymentSvc.ActionConfirm)

	f.registry.EXPECT().
		Remember(gomock.Any(), "wamid.e").
		Return(true, fmt.Errorf("redis down"))

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerConfirmed, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any())

	f.messenger.EXPECT().
		SendText(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	f.bookings.EXPECT().
		ProcessConfirmed(gomock.Any(), booking.ID).
		Return(bookingDto.BookingResponse{}, nil)

	ack, err := f.svc.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, dto.AckProcessed, ack.Status)
}

func TestApproval_HandleEvent_LostRace(t *testing.T) {
	f := newFixture(t)

	booking := pendingBooking()
	event := buttonEvent(t, "wamid.r", booking.ID, paymentSvc.ActionConfirm)

	f.registry.EXPECT().
		Remember(gomock.Any(), "wamid.r").
		Return(true, nil)

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, bookingModel.StatusBookingRequestSentToOwner, bookingModel.StatusOwnerConfirmed, nil).
		Return(false, nil)

	ack, err := f.svc.HandleEvent(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, dto.AckIgnored, ack.Status)
	assert.Equal(t, "decision already recorded", ack.Reason)
}
