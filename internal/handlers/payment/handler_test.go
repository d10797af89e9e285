package payment_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"nivaas/config"
	otelMocks "nivaas/infras/otel/mocks"
	"nivaas/internal/domains/payment/model/dto"
	svcMocks "nivaas/internal/domains/payment/service/mocks"
	paymentHandler "nivaas/internal/handlers/payment"
	"nivaas/shared/constant"
	"nivaas/shared/failure"
)

func newCallbackHandler(t *testing.T) (paymentHandler.Handler, *svcMocks.MockPayment) {
	t.Helper()

	ctrl := gomock.NewController(t)
	svc := svcMocks.NewMockPayment(ctrl)

	cfg := &config.Config{}
	cfg.App.FrontendURL = "https://book.example.com"

	return paymentHandler.New(svc, cfg, otelMocks.NewOtel()), svc
}

func TestPaymentCallback_RejectedCallbackStillRedirects(t *testing.T) {
	handler, svc := newCallbackHandler(t)

	svc.EXPECT().
		ProcessCallback(gomock.Any(), gomock.Any()).
		Return(dto.CallbackResult{}, failure.InvalidChecksumError)

	req := httptest.NewRequest("POST", "/payments/callback", strings.NewReader("STATUS=TXN_SUCCESS&ORDERID=ORD_1"))
	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeFormURLEncoded)

	rec := httptest.NewRecorder()
	handler.PaymentCallback(rec, req)

	assert.Equal(t, 400, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "https://book.example.com", "the failure page must still point the guest somewhere")
	assert.Contains(t, body, "invalid checksum")
}

func TestPaymentCallback_UnreadableBodyStillRedirects(t *testing.T) {
	handler, _ := newCallbackHandler(t)

	req := httptest.NewRequest("POST", "/payments/callback", strings.NewReader("{not json"))
	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)

	rec := httptest.NewRecorder()
	handler.PaymentCallback(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://book.example.com")
}
