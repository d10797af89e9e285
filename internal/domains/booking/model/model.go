package model

import (
	"time"

	"nivaas/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID               = "booking_id"
	FieldPropertyID       = "property_id"
	FieldPropertyName     = "property_name"
	FieldPropertyType     = "property_type"
	FieldGuestName        = "guest_name"
	FieldGuestPhone       = "guest_phone"
	FieldOwnerPhone       = "owner_phone"
	FieldAdminPhone       = "admin_phone"
	FieldCheckinDatetime  = "checkin_datetime"
	FieldCheckoutDatetime = "checkout_datetime"
	FieldAdvanceAmount    = "advance_amount"
	FieldPersons          = "persons"
	FieldMaxCapacity      = "max_capacity"
	FieldVegGuestCount    = "veg_guest_count"
	FieldNonvegGuestCount = "nonveg_guest_count"
	FieldPaymentStatus    = "payment_status"
	FieldBookingStatus    = "booking_status"
	FieldOrderID          = "order_id"
	FieldTransactionID    = "transaction_id"
	FieldRefundID         = "refund_id"
	FieldOwnerName        = "owner_name"
	FieldMapLink          = "map_link"
	FieldPropertyAddress  = "property_address"
	FieldTotalAmount      = "total_amount"
)

// Property types with their own capacity rules.
const (
	PropertyTypeVilla   = "VILLA"
	PropertyTypeCamping = "CAMPING"
	PropertyTypeCottage = "COTTAGE"
)

type Booking struct {
	ID               string        `db:"booking_id"`
	PropertyID       string        `db:"property_id"`
	PropertyName     string        `db:"property_name"`
	PropertyType     string        `db:"property_type"`
	GuestName        string        `db:"guest_name"`
	GuestPhone       string        `db:"guest_phone"`
	OwnerPhone       string        `db:"owner_phone"`
	AdminPhone       string        `db:"admin_phone"`
	CheckinDatetime  time.Time     `db:"checkin_datetime"`
	CheckoutDatetime time.Time     `db:"checkout_datetime"`
	AdvanceAmount    float64       `db:"advance_amount"`
	Persons          *int          `db:"persons"`
	MaxCapacity      *int          `db:"max_capacity"`
	VegGuestCount    *int          `db:"veg_guest_count"`
	NonvegGuestCount *int          `db:"nonveg_guest_count"`
	PaymentStatus    PaymentStatus `db:"payment_status"`
	BookingStatus    BookingStatus `db:"booking_status"`
	OrderID          string        `db:"order_id"`
	TransactionID    string        `db:"transaction_id"`
	RefundID         string        `db:"refund_id"`
	OwnerName        string        `db:"owner_name"`
	MapLink          string        `db:"map_link"`
	PropertyAddress  string        `db:"property_address"`
	TotalAmount      *float64      `db:"total_amount"`
	model.Metadata
}

// DueAmount is the balance payable on arrival; a missing total amount is
// treated as zero.
func (b *Booking) DueAmount() float64 {
	total := 0.0
	if b.TotalAmount != nil {
		total = *b.TotalAmount
	}

	return total - b.AdvanceAmount
}
