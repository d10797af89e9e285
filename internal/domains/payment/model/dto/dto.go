package dto

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	Channel   string `json:"channel" validate:"omitempty,oneof=WEB WAP"`
}

// InitiatePaymentResponse carries everything the frontend needs to post the
// guest to the gateway's hosted payment page.
type InitiatePaymentResponse struct {
	OrderID    string            `json:"order_id"`
	GatewayURL string            `json:"gateway_url"`
	Params     map[string]string `json:"params"`
}

// CallbackResult is the reconciled outcome of one gateway callback.
type CallbackResult struct {
	BookingID     string `json:"booking_id"`
	OrderID       string `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	BookingStatus string `json:"booking_status"`
	Message       string `json:"message"`
	RedirectURL   string `json:"redirect_url"`
}
