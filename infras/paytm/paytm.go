package paytm

//go:generate go run go.uber.org/mock/mockgen -source=./paytm.go -destination=./mocks/paytm_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"nivaas/config"
	"nivaas/shared/checksum"
)

const requestTimeout = 30 * time.Second

// Request parameter names fixed by the gateway protocol.
const (
	FieldMID          = "MID"
	FieldWebsite      = "WEBSITE"
	FieldIndustryType = "INDUSTRY_TYPE_ID"
	FieldChannelID    = "CHANNEL_ID"
	FieldOrderID      = "ORDER_ID"
	FieldCustomerID   = "CUST_ID"
	FieldMobileNumber = "MOBILE_NO"
	FieldEmail        = "EMAIL"
	FieldTxnAmount    = "TXN_AMOUNT"
	FieldCallbackURL  = "CALLBACK_URL"
)

// Callback parameter names fixed by the gateway protocol.
const (
	CallbackFieldOrderID   = "ORDERID"
	CallbackFieldTxnID     = "TXNID"
	CallbackFieldTxnAmount = "TXNAMOUNT"
	CallbackFieldStatus    = "STATUS"
	CallbackFieldRespCode  = "RESPCODE"
	CallbackFieldRespMsg   = "RESPMSG"
)

// Gateway status strings reported on the callback.
const (
	StatusTxnSuccess = "TXN_SUCCESS"
	StatusTxnFailure = "TXN_FAILURE"
	StatusPending    = "PENDING"
)

// Gateway is the refund capability of the payment processor.
type Gateway interface {
	Refund(ctx context.Context, orderID, transactionID, amount string) (refundID string, err error)
}

type gatewayImpl struct {
	cfg    *config.Config
	client *http.Client
}

func New(cfg *config.Config) Gateway {
	return &gatewayImpl{
		cfg: cfg,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type refundResponse struct {
	Body struct {
		ResultInfo struct {
			ResultStatus string `json:"resultStatus"`
			ResultCode   string `json:"resultCode"`
			ResultMsg    string `json:"resultMsg"`
		} `json:"resultInfo"`
		RefundID string `json:"refundId"`
	} `json:"body"`
}

// Refund applies a refund for the advance amount against the original
// transaction. The request body is checksum-signed the same way the payment
// intent parameters are.
func (g *gatewayImpl) Refund(ctx context.Context, orderID, transactionID, amount string) (string, error) {
	if g.cfg.Paytm.MockRefund {
		refundID := fmt.Sprintf("MOCK_REFUND_%d", time.Now().UnixMilli())

		log.Warn().
			Str("orderID", orderID).
			Str("amount", amount).
			Str("refundID", refundID).
			Msg("refund gateway running in mock mode")

		return refundID, nil
	}

	params := map[string]string{
		FieldMID:       g.cfg.Paytm.MID,
		"TXNID":        transactionID,
		"ORDERID":      orderID,
		"REFUNDAMOUNT": amount,
		"REFID":        generateRefundReference(),
		"TXNTYPE":      "REFUND",
	}

	signature, err := checksum.Sign(params, g.cfg.Paytm.MerchantKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refund request: %w", err)
	}

	request := map[string]any{
		"head": map[string]any{
			"signature": signature,
		},
		"body": params,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Paytm.RefundURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create refund request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call refund gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read refund response: %w", err)
	}

	var refund refundResponse
	if err := json.Unmarshal(respBody, &refund); err != nil {
		return "", fmt.Errorf("failed to decode refund response: %w", err)
	}

	result := refund.Body.ResultInfo
	if result.ResultStatus != StatusTxnSuccess && result.ResultStatus != StatusPending {
		return "", fmt.Errorf("gateway rejected refund: %s (%s)", result.ResultMsg, result.ResultCode)
	}

	log.Info().
		Str("orderID", orderID).
		Str("refundID", refund.Body.RefundID).
		Msg("refund accepted by gateway")

	return refund.Body.RefundID, nil
}

// GenerateOrderID produces the gateway order identifier. Uniqueness is
// advisory: a millisecond timestamp with a random suffix keeps the collision
// probability negligible.
func GenerateOrderID() string {
	return fmt.Sprintf("ORD_%d_%d", time.Now().UnixMilli(), rand.Intn(10000)) //nolint:gosec
}

func generateRefundReference() string {
	return fmt.Sprintf("REF_%d_%d", time.Now().UnixMilli(), rand.Intn(10000)) //nolint:gosec
}
