package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, package_id, travelers_count, travel_date,
	   total_amount, status, payment_status, payment_method, transaction_id,
	   card_last_four, payment_date, feedback_submitted, feedback_id,
	   created_at, updated_at`

// Create inserts a new booking in pending/pending state. The amount is
// fixed here and never recomputed, even if the package price changes
// later.
func (r *BookingRepository) Create(booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.Status = models.BookingStatusPending
	booking.PaymentStatus = models.PaymentStatusPending

	query := `
		INSERT INTO bookings (
			id, user_id, package_id, travelers_count, travel_date,
			total_amount, status, payment_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(query,
		booking.ID, booking.UserID, booking.PackageID, booking.TravelersCount,
		booking.TravelDate, booking.TotalAmount, booking.Status, booking.PaymentStatus,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// GetByIDForUpdateTx retrieves a booking by ID inside a transaction,
// locking the row so concurrent lifecycle transitions serialize on it
func (r *BookingRepository) GetByIDForUpdateTx(tx *sqlx.Tx, bookingID uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.scanBooking(tx.QueryRow(query, bookingID))
}

// ListByUser retrieves all bookings for a user joined with package
// details, newest first
func (r *BookingRepository) ListByUser(userID int64) ([]models.BookingDetail, error) {
	query := `
		SELECT b.id, b.user_id, b.package_id, b.travelers_count, b.travel_date,
			   b.total_amount, b.status, b.payment_status, b.payment_method, b.transaction_id,
			   b.card_last_four, b.payment_date, b.feedback_submitted, b.feedback_id,
			   b.created_at, b.updated_at,
			   p.name, p.destination, p.duration_days, p.image_url
		FROM bookings b
		JOIN packages p ON p.id = b.package_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookingDetails(rows)
}

// ListAll retrieves every booking joined with package details, newest
// first (admin view)
func (r *BookingRepository) ListAll() ([]models.BookingDetail, error) {
	query := `
		SELECT b.id, b.user_id, b.package_id, b.travelers_count, b.travel_date,
			   b.total_amount, b.status, b.payment_status, b.payment_method, b.transaction_id,
			   b.card_last_four, b.payment_date, b.feedback_submitted, b.feedback_id,
			   b.created_at, b.updated_at,
			   p.name, p.destination, p.duration_days, p.image_url
		FROM bookings b
		JOIN packages p ON p.id = b.package_id
		ORDER BY b.created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookingDetails(rows)
}

// ConfirmPaymentTx marks a booking confirmed/completed inside a
// transaction, recording the payment trail. Only a pending booking can
// be confirmed; a zero affected-row count means the booking changed
// state concurrently.
func (r *BookingRepository) ConfirmPaymentTx(tx *sqlx.Tx, bookingID uuid.UUID, method, transactionID, cardLastFour string, paidAt time.Time) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, payment_method = $3,
			transaction_id = $4, card_last_four = $5, payment_date = $6,
			updated_at = NOW()
		WHERE id = $7 AND status = $8`

	result, err := tx.Exec(query,
		models.BookingStatusConfirmed, models.PaymentStatusCompleted, method,
		transactionID, cardLastFour, paidAt,
		bookingID, models.BookingStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStatusTx updates a booking's lifecycle status inside a transaction
func (r *BookingRepository) SetStatusTx(tx *sqlx.Tx, bookingID uuid.UUID, status models.BookingStatus) error {
	result, err := tx.Exec(
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, bookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindFeedbackTarget resolves which booking a feedback submission
// attaches to: the user's most recent confirmed booking for the package
// without feedback, falling back to the most recent confirmed booking
// (the edit path). Returns sql.ErrNoRows when no confirmed booking
// exists.
func (r *BookingRepository) FindFeedbackTarget(userID, packageID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND package_id = $2 AND status = $3
		ORDER BY feedback_submitted ASC, created_at DESC
		LIMIT 1`

	return r.scanBooking(r.db.QueryRow(query, userID, packageID, models.BookingStatusConfirmed))
}

// LinkFeedback records the feedback reference on a booking
func (r *BookingRepository) LinkFeedback(bookingID uuid.UUID, feedbackID int64) error {
	result, err := r.db.Exec(
		`UPDATE bookings SET feedback_submitted = TRUE, feedback_id = $1, updated_at = NOW() WHERE id = $2`,
		feedbackID, bookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to link feedback: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus returns booking counts grouped by status (admin stats)
func (r *BookingRepository) CountByStatus() (map[models.BookingStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.BookingStatus]int)
	for rows.Next() {
		var status models.BookingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// scanBooking scans a single booking from a row scanner
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.PackageID, &b.TravelersCount, &b.TravelDate,
		&b.TotalAmount, &b.Status, &b.PaymentStatus, &b.PaymentMethod, &b.TransactionID,
		&b.CardLastFour, &b.PaymentDate, &b.FeedbackSubmitted, &b.FeedbackID,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) scanBookingDetails(rows *sql.Rows) ([]models.BookingDetail, error) {
	var details []models.BookingDetail
	for rows.Next() {
		var d models.BookingDetail
		err := rows.Scan(
			&d.ID, &d.UserID, &d.PackageID, &d.TravelersCount, &d.TravelDate,
			&d.TotalAmount, &d.Status, &d.PaymentStatus, &d.PaymentMethod, &d.TransactionID,
			&d.CardLastFour, &d.PaymentDate, &d.FeedbackSubmitted, &d.FeedbackID,
			&d.CreatedAt, &d.UpdatedAt,
			&d.PackageName, &d.Destination, &d.DurationDays, &d.ImageURL,
		)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// scanner interface for QueryRow and Rows
type scanner interface {
	Scan(dest ...interface{}) error
}
