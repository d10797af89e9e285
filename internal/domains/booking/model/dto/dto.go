package dto

import (
	"time"

	"github.com/google/uuid"

	"nivaas/internal/domains/booking/model"
	"nivaas/shared/constant"
	gDto "nivaas/shared/dto"
	"nivaas/shared/failure"
	gModel "nivaas/shared/model"
	"nivaas/shared/timezone"
)

type CreateBookingRequest struct {
	PropertyID       string   `json:"property_id"       validate:"required"`
	PropertyName     string   `json:"property_name"     validate:"required,max=200"`
	PropertyType     string   `json:"property_type"     validate:"required,oneof=VILLA CAMPING COTTAGE"`
	GuestName        string   `json:"guest_name"        validate:"required,max=100"`
	GuestPhone       string   `json:"guest_phone"       validate:"required,max=20"`
	OwnerPhone       string   `json:"owner_phone"       validate:"required,max=20"`
	AdminPhone       string   `json:"admin_phone"       validate:"required,max=20"`
	CheckinDatetime  string   `json:"checkin_datetime"  validate:"required"`
	CheckoutDatetime string   `json:"checkout_datetime" validate:"required"`
	AdvanceAmount    float64  `json:"advance_amount"    validate:"required,gt=0"`
	Persons          *int     `json:"persons"           validate:"omitempty,gt=0"`
	MaxCapacity      *int     `json:"max_capacity"      validate:"omitempty,gt=0"`
	VegGuestCount    *int     `json:"veg_guest_count"   validate:"omitempty,gte=0"`
	NonvegGuestCount *int     `json:"nonveg_guest_count" validate:"omitempty,gte=0"`
	OwnerName        string   `json:"owner_name"        validate:"omitempty,max=100"`
	MapLink          string   `json:"map_link"          validate:"omitempty,max=500"`
	PropertyAddress  string   `json:"property_address"  validate:"omitempty,max=500"`
	TotalAmount      *float64 `json:"total_amount"      validate:"omitempty,gt=0"`
}

// ToModel parses the stay window, applies the per-property-type capacity
// rules and returns a fresh booking in its initial state.
func (c *CreateBookingRequest) ToModel() (model.Booking, error) {
	checkin, err := time.Parse(constant.DateFormat, c.CheckinDatetime)
	if err != nil {
		return model.Booking{}, failure.BadRequestFromString("invalid checkin_datetime: " + err.Error()) //nolint:wrapcheck
	}

	checkout, err := time.Parse(constant.DateFormat, c.CheckoutDatetime)
	if err != nil {
		return model.Booking{}, failure.BadRequestFromString("invalid checkout_datetime: " + err.Error()) //nolint:wrapcheck
	}

	if !checkout.After(checkin) {
		return model.Booking{}, failure.BadRequestFromString("checkout_datetime must be after checkin_datetime") //nolint:wrapcheck
	}

	if err := c.validateCapacity(); err != nil {
		return model.Booking{}, err
	}

	return model.Booking{
		ID:               uuid.NewString(),
		PropertyID:       c.PropertyID,
		PropertyName:     c.PropertyName,
		PropertyType:     c.PropertyType,
		GuestName:        c.GuestName,
		GuestPhone:       c.GuestPhone,
		OwnerPhone:       c.OwnerPhone,
		AdminPhone:       c.AdminPhone,
		CheckinDatetime:  checkin,
		CheckoutDatetime: checkout,
		AdvanceAmount:    c.AdvanceAmount,
		Persons:          c.Persons,
		MaxCapacity:      c.MaxCapacity,
		VegGuestCount:    c.VegGuestCount,
		NonvegGuestCount: c.NonvegGuestCount,
		PaymentStatus:    model.PaymentInitiated,
		BookingStatus:    model.StatusPaymentPending,
		OwnerName:        c.OwnerName,
		MapLink:          c.MapLink,
		PropertyAddress:  c.PropertyAddress,
		TotalAmount:      c.TotalAmount,
		Metadata: gModel.Metadata{
			CreatedAt: timezone.Now(),
			UpdatedAt: timezone.Now(),
		},
	}, nil
}

func (c *CreateBookingRequest) validateCapacity() error {
	switch c.PropertyType {
	case model.PropertyTypeVilla:
		if c.Persons == nil || c.MaxCapacity == nil {
			return failure.BadRequestFromString("VILLA bookings require persons and max_capacity") //nolint:wrapcheck
		}

		if *c.Persons <= 0 || *c.Persons > *c.MaxCapacity {
			return failure.BadRequestFromString("persons must be between 1 and max_capacity") //nolint:wrapcheck
		}
	case model.PropertyTypeCamping, model.PropertyTypeCottage:
		if c.VegGuestCount == nil || c.NonvegGuestCount == nil {
			return failure.BadRequestFromString("CAMPING/COTTAGE bookings require veg and nonveg guest counts") //nolint:wrapcheck
		}

		if *c.VegGuestCount+*c.NonvegGuestCount <= 0 {
			return failure.BadRequestFromString("total guest count must be greater than 0") //nolint:wrapcheck
		}
	}

	return nil
}

type UpdateStatusRequest struct {
	BookingID     string `json:"booking_id"     validate:"omitempty"`
	BookingStatus string `json:"booking_status" validate:"omitempty,oneof=PAYMENT_PENDING PAYMENT_SUCCESS BOOKING_REQUEST_SENT_TO_OWNER OWNER_CONFIRMED OWNER_CANCELLED TICKET_GENERATED REFUND_REQUIRED REFUND_INITIATED REFUND_FAILED CANCELLED_NO_REFUND"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=INITIATED PENDING SUCCESS FAILED"`
	OrderID       string `json:"order_id"       validate:"omitempty,max=64"`
	TransactionID string `json:"transaction_id" validate:"omitempty,max=64"`
}

type ProcessBookingRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
}

type BookingResponse struct {
	ID               string   `json:"booking_id"`
	PropertyID       string   `json:"property_id"`
	PropertyName     string   `json:"property_name"`
	PropertyType     string   `json:"property_type"`
	GuestName        string   `json:"guest_name"`
	GuestPhone       string   `json:"guest_phone"`
	OwnerPhone       string   `json:"owner_phone"`
	AdminPhone       string   `json:"admin_phone"`
	CheckinDatetime  string   `json:"checkin_datetime"`
	CheckoutDatetime string   `json:"checkout_datetime"`
	AdvanceAmount    float64  `json:"advance_amount"`
	DueAmount        float64  `json:"due_amount"`
	Persons          *int     `json:"persons,omitempty"`
	MaxCapacity      *int     `json:"max_capacity,omitempty"`
	VegGuestCount    *int     `json:"veg_guest_count,omitempty"`
	NonvegGuestCount *int     `json:"nonveg_guest_count,omitempty"`
	PaymentStatus    string   `json:"payment_status"`
	BookingStatus    string   `json:"booking_status"`
	OrderID          string   `json:"order_id,omitempty"`
	TransactionID    string   `json:"transaction_id,omitempty"`
	RefundID         string   `json:"refund_id,omitempty"`
	OwnerName        string   `json:"owner_name,omitempty"`
	MapLink          string   `json:"map_link,omitempty"`
	PropertyAddress  string   `json:"property_address,omitempty"`
	TotalAmount      *float64 `json:"total_amount,omitempty"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(mod model.Booking) {
	r.ID = mod.ID
	r.PropertyID = mod.PropertyID
	r.PropertyName = mod.PropertyName
	r.PropertyType = mod.PropertyType
	r.GuestName = mod.GuestName
	r.GuestPhone = mod.GuestPhone
	r.OwnerPhone = mod.OwnerPhone
	r.AdminPhone = mod.AdminPhone
	r.CheckinDatetime = timezone.Format(mod.CheckinDatetime, constant.DateFormat)
	r.CheckoutDatetime = timezone.Format(mod.CheckoutDatetime, constant.DateFormat)
	r.AdvanceAmount = mod.AdvanceAmount
	r.DueAmount = mod.DueAmount()
	r.Persons = mod.Persons
	r.MaxCapacity = mod.MaxCapacity
	r.VegGuestCount = mod.VegGuestCount
	r.NonvegGuestCount = mod.NonvegGuestCount
	r.PaymentStatus = string(mod.PaymentStatus)
	r.BookingStatus = string(mod.BookingStatus)
	r.OrderID = mod.OrderID
	r.TransactionID = mod.TransactionID
	r.RefundID = mod.RefundID
	r.OwnerName = mod.OwnerName
	r.MapLink = mod.MapLink
	r.PropertyAddress = mod.PropertyAddress
	r.TotalAmount = mod.TotalAmount
	r.Metadata.FromModel(mod.Metadata)
}

// CancellationResult reports the outcome of the post-cancellation workflow.
type CancellationResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
	Status   string `json:"status"`
}

const CancellationAlreadyProcessed = "already_processed"
