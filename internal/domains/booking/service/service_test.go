package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nivaas/config"
	"nivaas/infras/otel/mocks"
	paytmMocks "nivaas/infras/paytm/mocks"
	waMocks "nivaas/infras/whatsapp/mocks"
	"nivaas/internal/domains/booking/model"
	"nivaas/internal/domains/booking/model/dto"
	repoMocks "nivaas/internal/domains/booking/repository/mocks"
	"nivaas/internal/domains/booking/service"
	eventMocks "nivaas/internal/events/mocks"
	"nivaas/shared/failure"
)

// stubCache always misses so service tests exercise the repository path.
type stubCache struct {
	mu sync.Mutex
}

func (c *stubCache) Save(_ context.Context, _ string, _ any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return nil
}

func (c *stubCache) Get(_ context.Context, _ string, _ any) error {
	return errors.New("cache miss")
}

func (c *stubCache) Delete(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return nil
}

type fixture struct {
	repo      *repoMocks.MockBooking
	gateway   *paytmMocks.MockGateway
	messenger *waMocks.MockClient
	publisher *eventMocks.MockPublisher
	svc       service.Booking
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	repo := repoMocks.NewMockBooking(ctrl)
	gateway := paytmMocks.NewMockGateway(ctrl)
	messenger := waMocks.NewMockClient(ctrl)
	publisher := eventMocks.NewMockPublisher(ctrl)

	cfg := &config.Config{}
	cfg.App.FrontendURL = "https://book.example.com"

	svc := service.New(repo, gateway, messenger, publisher, cfg, &stubCache{}, mocks.NewOtel())

	return fixture{
		repo:      repo,
		gateway:   gateway,
		messenger: messenger,
		publisher: publisher,
		svc:       svc,
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func confirmedBooking() model.Booking {
	return model.Booking{
		ID:               "b-1",
		PropertyID:       "prop-1",
		PropertyName:     "Hilltop Villa",
		PropertyType:     model.PropertyTypeVilla,
		GuestName:        "Asha",
		GuestPhone:       "919812345678",
		OwnerPhone:       "919887654321",
		AdminPhone:       "919800000000",
		CheckinDatetime:  time.Now().Add(24 * time.Hour),
		CheckoutDatetime: time.Now().Add(48 * time.Hour),
		AdvanceAmount:    1500,
		PaymentStatus:    model.PaymentSuccess,
		BookingStatus:    model.StatusOwnerConfirmed,
		OrderID:          "ORD_1",
		TransactionID:    "TXN_1",
	}
}

func TestBookingService_Create(t *testing.T) {
	f := newFixture(t)

	req := dto.CreateBookingRequest{
		PropertyID:       "prop-1",
		PropertyName:     "Hilltop Villa",
		PropertyType:     model.PropertyTypeVilla,
		GuestName:        "Asha",
		GuestPhone:       "919812345678",
		OwnerPhone:       "919887654321",
		AdminPhone:       "919800000000",
		CheckinDatetime:  "2026-09-10T14:00:00Z",
		CheckoutDatetime: "2026-09-12T11:00:00Z",
		AdvanceAmount:    1500,
		Persons:          intPtr(4),
		MaxCapacity:      intPtr(8),
	}

	f.repo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(nil)

	res, err := f.svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, string(model.StatusPaymentPending), res.BookingStatus)
	assert.Equal(t, string(model.PaymentInitiated), res.PaymentStatus)
}

func TestBookingService_Create_InvalidDates(t *testing.T) {
	f := newFixture(t)

	req := dto.CreateBookingRequest{
		PropertyType:     model.PropertyTypeVilla,
		CheckinDatetime:  "2026-09-12T11:00:00Z",
		CheckoutDatetime: "2026-09-10T14:00:00Z",
		Persons:          intPtr(2),
		MaxCapacity:      intPtr(4),
	}

	_, err := f.svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, 400, failure.GetCode(err))
}

func TestBookingService_Get_NotFound(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(model.Booking{}, nil)

	_, err := f.svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, 404, failure.GetCode(err))
}

func TestBookingService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   model.BookingStatus
		target    string
		setupMock func(f fixture, booking model.Booking)
		wantErr   bool
		wantCode  int
	}{
		{
			name:    "valid transition wins CAS",
			current: model.StatusPaymentPending,
			target:  string(model.StatusPaymentSuccess),
			setupMock: func(f fixture, booking model.Booking) {
				f.repo.EXPECT().
					UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusPaymentPending, model.StatusPaymentSuccess, gomock.Any()).
					Return(true, nil)

				f.publisher.EXPECT().
					BookingStatusChanged(gomock.Any(), gomock.Any(), model.StatusPaymentPending, model.StatusPaymentSuccess)

				f.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(booking, nil)
			},
		},
		{
			name:     "invalid transition rejected before write",
			current:  model.StatusPaymentPending,
			target:   string(model.StatusTicketGenerated),
			wantErr:  true,
			wantCode: 409,
		},
		{
			name:    "lost CAS returns conflict",
			current: model.StatusPaymentPending,
			target:  string(model.StatusPaymentSuccess),
			setupMock: func(f fixture, booking model.Booking) {
				f.repo.EXPECT().
					UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusPaymentPending, model.StatusPaymentSuccess, gomock.Any()).
					Return(false, nil)
			},
			wantErr:  true,
			wantCode: 409,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			booking := confirmedBooking()
			booking.BookingStatus = tt.current

			f.repo.EXPECT().
				Get(gomock.Any(), gomock.Any()).
				Return(booking, nil)

			if tt.setupMock != nil {
				tt.setupMock(f, booking)
			}

			_, err := f.svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
				BookingID:     booking.ID,
				BookingStatus: tt.target,
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestBookingService_ProcessConfirmed(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()
	booking.TotalAmount = floatPtr(5000)

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusOwnerConfirmed, model.StatusTicketGenerated, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), model.StatusOwnerConfirmed, model.StatusTicketGenerated)

	var guestMessage string

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.GuestPhone, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, body string) error {
			guestMessage = body

			return nil
		})

	var adminMessage string

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.AdminPhone, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, body string) error {
			adminMessage = body

			return nil
		})

	res, err := f.svc.ProcessConfirmed(context.Background(), booking.ID)

	require.NoError(t, err)
	assert.Equal(t, string(model.StatusTicketGenerated), res.BookingStatus)
	assert.Contains(t, guestMessage, "https://book.example.com/eticket/b-1")
	assert.Contains(t, adminMessage, "Due: 3500.00")
}

func TestBookingService_ProcessConfirmed_WrongState(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()
	booking.BookingStatus = model.StatusPaymentPending

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	_, err := f.svc.ProcessConfirmed(context.Background(), booking.ID)

	require.Error(t, err)
	assert.Equal(t, 409, failure.GetCode(err))
	assert.Contains(t, err.Error(), string(model.StatusOwnerConfirmed))
}

func TestBookingService_ProcessConfirmed_NotificationFailureKeepsTransition(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusOwnerConfirmed, model.StatusTicketGenerated, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), model.StatusOwnerConfirmed, model.StatusTicketGenerated)

	f.messenger.EXPECT().
		SendText(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("platform down")).
		Times(2)

	res, err := f.svc.ProcessConfirmed(context.Background(), booking.ID)

	require.NoError(t, err, "notification failures must not undo the transition")
	assert.Equal(t, string(model.StatusTicketGenerated), res.BookingStatus)
}

func TestBookingService_ProcessCancelled_Refund(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()
	booking.BookingStatus = model.StatusOwnerCancelled

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.gateway.EXPECT().
		Refund(gomock.Any(), booking.OrderID, booking.TransactionID, "1500.00").
		Return("REFUND_1", nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusOwnerCancelled, model.StatusRefundInitiated, map[string]any{
			model.FieldRefundID: "REFUND_1",
		}).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), model.StatusOwnerCancelled, model.StatusRefundInitiated)

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.GuestPhone, gomock.Any()).
		Return(nil)

	var adminMessage string

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.AdminPhone, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, body string) error {
			adminMessage = body

			return nil
		})

	res, err := f.svc.ProcessCancelled(context.Background(), booking.ID)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "REFUND_1", res.RefundID)
	assert.Equal(t, string(model.StatusRefundInitiated), res.Status)
	assert.Contains(t, adminMessage, "REFUND_1")
	assert.Contains(t, adminMessage, "1500.00")
}

func TestBookingService_ProcessCancelled_AlreadyProcessed(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()
	booking.BookingStatus = model.StatusRefundInitiated
	booking.RefundID = "REFUND_1"

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	res, err := f.svc.ProcessCancelled(context.Background(), booking.ID)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "REFUND_1", res.RefundID)
	assert.Equal(t, dto.CancellationAlreadyProcessed, res.Status)
}

func TestBookingService_ProcessCancelled_RefundFailure(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()
	booking.BookingStatus = model.StatusOwnerCancelled

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.gateway.EXPECT().
		Refund(gomock.Any(), booking.OrderID, booking.TransactionID, "1500.00").
		Return("", errors.New("gateway rejected"))

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusOwnerCancelled, model.StatusRefundFailed, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), model.StatusOwnerCancelled, model.StatusRefundFailed)

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.AdminPhone, gomock.Any()).
		Return(nil)

	_, err := f.svc.ProcessCancelled(context.Background(), booking.ID)

	require.Error(t, err)
	assert.Equal(t, 502, failure.GetCode(err))
}

func TestBookingService_ProcessCancelled_NoRefundWhenUnpaid(t *testing.T) {
	f := newFixture(t)

	booking := confirmedBooking()
	booking.BookingStatus = model.StatusOwnerCancelled
	booking.PaymentStatus = model.PaymentFailed

	f.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)

	f.repo.EXPECT().
		UpdateStatusFrom(gomock.Any(), booking.ID, model.StatusOwnerCancelled, model.StatusCancelledNoRefund, nil).
		Return(true, nil)

	f.publisher.EXPECT().
		BookingStatusChanged(gomock.Any(), gomock.Any(), model.StatusOwnerCancelled, model.StatusCancelledNoRefund)

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.GuestPhone, gomock.Any()).
		Return(nil)

	var adminMessage string

	f.messenger.EXPECT().
		SendText(gomock.Any(), booking.AdminPhone, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, body string) error {
			adminMessage = body

			return nil
		})

	res, err := f.svc.ProcessCancelled(context.Background(), booking.ID)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.RefundID)
	assert.Equal(t, string(model.StatusCancelledNoRefund), res.Status)
	assert.Contains(t, adminMessage, "no refund")
}

func TestBookingService_Eticket(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(b *model.Booking)
		wantCode int
	}{
		{
			name: "available ticket",
			mutate: func(b *model.Booking) {
				b.BookingStatus = model.StatusTicketGenerated
			},
		},
		{
			name: "wrong state",
			mutate: func(b *model.Booking) {
				b.BookingStatus = model.StatusPaymentPending
			},
			wantCode: 403,
		},
		{
			name: "expired after checkout",
			mutate: func(b *model.Booking) {
				b.BookingStatus = model.StatusTicketGenerated
				b.CheckoutDatetime = time.Now().Add(-time.Hour)
			},
			wantCode: 410,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			booking := confirmedBooking()
			tt.mutate(&booking)

			f.repo.EXPECT().
				Get(gomock.Any(), gomock.Any()).
				Return(booking, nil)

			res, err := f.svc.Eticket(context.Background(), booking.ID)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, booking.ID, res.ID)
		})
	}
}
