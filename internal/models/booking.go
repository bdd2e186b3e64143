package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether the status is one of the known lifecycle states
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Booking represents a user's booking of a tour package.
// UserID, PackageID, TravelersCount and TotalAmount are fixed at
// creation and never updated; the lifecycle evolves through the
// status and payment_status columns only.
type Booking struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	UserID            int64         `json:"user_id" db:"user_id"`
	PackageID         int64         `json:"package_id" db:"package_id"`
	TravelersCount    int           `json:"travelers_count" db:"travelers_count"`
	TravelDate        time.Time     `json:"travel_date" db:"travel_date"`
	TotalAmount       float64       `json:"total_amount" db:"total_amount"`
	Status            BookingStatus `json:"status" db:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod     *string       `json:"payment_method,omitempty" db:"payment_method"`
	TransactionID     *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	CardLastFour      *string       `json:"card_last_four,omitempty" db:"card_last_four"`
	PaymentDate       *time.Time    `json:"payment_date,omitempty" db:"payment_date"`
	FeedbackSubmitted bool          `json:"feedback_submitted" db:"feedback_submitted"`
	FeedbackID        *int64        `json:"feedback_id,omitempty" db:"feedback_id"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// BookingDetail is a booking joined with its package for display
type BookingDetail struct {
	Booking
	PackageName  string  `json:"package_name" db:"package_name"`
	Destination  string  `json:"destination" db:"destination"`
	DurationDays int     `json:"duration_days" db:"duration_days"`
	ImageURL     *string `json:"image_url,omitempty" db:"image_url"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	PackageID      int64  `json:"package_id" binding:"required"`
	TravelersCount int    `json:"travelers_count" binding:"required,min=1"`
	TravelDate     string `json:"travel_date" binding:"required"` // YYYY-MM-DD
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.TravelersCount <= 0 {
		return errors.New("travelers_count must be at least 1")
	}
	if r.TravelersCount > 20 {
		return errors.New("maximum 20 travelers per booking")
	}
	if _, err := time.Parse("2006-01-02", r.TravelDate); err != nil {
		return errors.New("travel_date must be in YYYY-MM-DD format")
	}
	return nil
}

// ParsedTravelDate returns the travel date as time.Time. Validate must
// have been called first.
func (r *CreateBookingRequest) ParsedTravelDate() time.Time {
	t, _ := time.Parse("2006-01-02", r.TravelDate)
	return t
}

// ConfirmPaymentRequest carries the card details for payment confirmation
type ConfirmPaymentRequest struct {
	CardNumber string `json:"card_number" binding:"required"`
	CardHolder string `json:"card_holder" binding:"required"`
	ExpiryDate string `json:"expiry_date" binding:"required"`
	CVV        string `json:"cvv" binding:"required"`
}

// IsPending reports whether the booking is awaiting payment
func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

// IsConfirmed reports whether the booking has been paid and confirmed
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// IsCancelled reports whether the booking has been cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// SlotsDebited reports whether inventory was committed for this booking.
// Slots are debited at payment confirmation, never at creation, so only
// a confirmed booking holds debited slots.
func (b *Booking) SlotsDebited() bool {
	return b.Status == BookingStatusConfirmed
}
