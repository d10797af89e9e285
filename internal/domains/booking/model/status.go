package model

import (
	"nivaas/shared/failure"
)

// BookingStatus is the closed set of booking lifecycle states. Values outside
// the set are a construction-time error, never stored.
type BookingStatus string

const (
	StatusPaymentPending            BookingStatus = "PAYMENT_PENDING"
	StatusPaymentSuccess            BookingStatus = "PAYMENT_SUCCESS"
	StatusBookingRequestSentToOwner BookingStatus = "BOOKING_REQUEST_SENT_TO_OWNER"
	StatusOwnerConfirmed            BookingStatus = "OWNER_CONFIRMED"
	StatusOwnerCancelled            BookingStatus = "OWNER_CANCELLED"
	StatusTicketGenerated           BookingStatus = "TICKET_GENERATED"
	StatusRefundRequired            BookingStatus = "REFUND_REQUIRED"
	StatusRefundInitiated           BookingStatus = "REFUND_INITIATED"
	StatusRefundFailed              BookingStatus = "REFUND_FAILED"
	StatusCancelledNoRefund         BookingStatus = "CANCELLED_NO_REFUND"
)

// PaymentStatus is the gateway-facing payment state.
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "INITIATED"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
)

// validTransitions is the complete adjacency list of the booking state
// machine. Statuses with an empty list are terminal. REFUND_REQUIRED has
// outgoing edges but is only ever entered by manual administrative action.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPaymentPending:            {StatusPaymentSuccess},
	StatusPaymentSuccess:            {StatusBookingRequestSentToOwner},
	StatusBookingRequestSentToOwner: {StatusOwnerConfirmed, StatusOwnerCancelled},
	StatusOwnerConfirmed:            {StatusTicketGenerated},
	StatusOwnerCancelled:            {StatusRefundRequired, StatusRefundInitiated, StatusCancelledNoRefund},
	StatusTicketGenerated:           {},
	StatusRefundRequired:            {StatusRefundInitiated, StatusRefundFailed},
	StatusRefundInitiated:           {},
	StatusRefundFailed:              {},
	StatusCancelledNoRefund:         {},
}

// Valid reports whether s is a member of the closed status set.
func (s BookingStatus) Valid() bool {
	_, ok := validTransitions[s]

	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s BookingStatus) Terminal() bool {
	edges, ok := validTransitions[s]

	return ok && len(edges) == 0
}

// Valid reports whether s is a member of the closed payment status set.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentInitiated, PaymentPending, PaymentSuccess, PaymentFailed:
		return true
	}

	return false
}

// CanTransition reports whether the edge from → to exists in the transition
// graph. There are no implicit self transitions.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// CheckTransition returns an InvalidTransition failure naming both states when
// the edge from → to is not in the graph.
func CheckTransition(from, to BookingStatus) error {
	if !CanTransition(from, to) {
		return failure.InvalidTransition(string(from), string(to)) //nolint:wrapcheck
	}

	return nil
}
