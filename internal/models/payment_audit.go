package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAuditEvent classifies a payment confirmation attempt
type PaymentAuditEvent string

const (
	PaymentAuditConfirmed         PaymentAuditEvent = "payment_confirmed"
	PaymentAuditInvalidDetails    PaymentAuditEvent = "invalid_details"
	PaymentAuditInsufficientSlots PaymentAuditEvent = "insufficient_slots"
	PaymentAuditStoreError        PaymentAuditEvent = "store_error"
)

// PaymentAudit is an append-only record of a payment confirmation
// attempt. Rows are written for failures as well as successes so the
// payment trail can be reconciled without the bookings table.
type PaymentAudit struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	BookingID     uuid.UUID         `json:"booking_id" db:"booking_id"`
	UserID        int64             `json:"user_id" db:"user_id"`
	EventType     PaymentAuditEvent `json:"event_type" db:"event_type"`
	Amount        float64           `json:"amount" db:"amount"`
	TransactionID *string           `json:"transaction_id,omitempty" db:"transaction_id"`
	ErrorMessage  *string           `json:"error_message,omitempty" db:"error_message"`
	IPAddress     *string           `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}
