package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// PaymentAuditRepository handles the append-only payment audit trail
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db, logger: logger}
}

// Log appends a payment audit entry. Audit rows record failed attempts
// as well as successes so the payment trail can be reconciled
// independently of the bookings table.
func (r *PaymentAuditRepository) Log(audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, user_id, event_type, amount,
			transaction_id, error_message, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		audit.ID, audit.BookingID, audit.UserID, audit.EventType, audit.Amount,
		audit.TransactionID, audit.ErrorMessage, audit.IPAddress, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"booking_id": audit.BookingID,
			"event_type": audit.EventType,
		}).WithError(err).Error("failed to write payment audit entry")
		return fmt.Errorf("failed to write payment audit: %w", err)
	}
	return nil
}

// ListByBooking retrieves the audit trail for a booking, oldest first
func (r *PaymentAuditRepository) ListByBooking(bookingID uuid.UUID) ([]models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, user_id, event_type, amount,
			   transaction_id, error_message, ip_address, created_at
		FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	defer rows.Close()

	var audits []models.PaymentAudit
	for rows.Next() {
		var a models.PaymentAudit
		err := rows.Scan(
			&a.ID, &a.BookingID, &a.UserID, &a.EventType, &a.Amount,
			&a.TransactionID, &a.ErrorMessage, &a.IPAddress, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
