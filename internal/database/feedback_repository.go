package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// FeedbackRepository handles database operations for the feedback table
type FeedbackRepository struct {
	db DB
}

// NewFeedbackRepository creates a new FeedbackRepository
func NewFeedbackRepository(db DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// GetByBookingID retrieves the feedback row for a booking, if any.
// Returns sql.ErrNoRows when the booking has no feedback yet.
func (r *FeedbackRepository) GetByBookingID(bookingID uuid.UUID) (*models.Feedback, error) {
	query := `
		SELECT id, user_id, package_id, booking_id, rating, comment, created_at, updated_at
		FROM feedback
		WHERE booking_id = $1`

	var f models.Feedback
	err := r.db.QueryRow(query, bookingID).Scan(
		&f.ID, &f.UserID, &f.PackageID, &f.BookingID,
		&f.Rating, &f.Comment, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new feedback row for a booking
func (r *FeedbackRepository) Create(feedback *models.Feedback) error {
	query := `
		INSERT INTO feedback (user_id, package_id, booking_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(query,
		feedback.UserID, feedback.PackageID, feedback.BookingID,
		feedback.Rating, feedback.Comment,
	).Scan(&feedback.ID, &feedback.CreatedAt, &feedback.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// Update edits an existing feedback row in place, preserving its id and
// refreshing the timestamp
func (r *FeedbackRepository) Update(feedbackID int64, rating int, comment string) error {
	result, err := r.db.Exec(
		`UPDATE feedback SET rating = $1, comment = $2, updated_at = NOW() WHERE id = $3`,
		rating, comment, feedbackID,
	)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
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

// ListByPackage retrieves all feedback for a package with author names,
// newest first
func (r *FeedbackRepository) ListByPackage(packageID int64) ([]models.FeedbackDetail, error) {
	query := `
		SELECT f.id, f.user_id, f.package_id, f.booking_id, f.rating, f.comment,
			   f.created_at, f.updated_at, u.full_name
		FROM feedback f
		JOIN users u ON u.id = f.user_id
		WHERE f.package_id = $1
		ORDER BY f.created_at DESC`

	rows, err := r.db.Query(query, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var details []models.FeedbackDetail
	for rows.Next() {
		var d models.FeedbackDetail
		err := rows.Scan(
			&d.ID, &d.UserID, &d.PackageID, &d.BookingID, &d.Rating, &d.Comment,
			&d.CreatedAt, &d.UpdatedAt, &d.UserName,
		)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListByUser retrieves a user's feedback history, newest first
func (r *FeedbackRepository) ListByUser(userID int64) ([]models.Feedback, error) {
	query := `
		SELECT id, user_id, package_id, booking_id, rating, comment, created_at, updated_at
		FROM feedback
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var feedback []models.Feedback
	for rows.Next() {
		var f models.Feedback
		err := rows.Scan(
			&f.ID, &f.UserID, &f.PackageID, &f.BookingID,
			&f.Rating, &f.Comment, &f.CreatedAt, &f.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		feedback = append(feedback, f)
	}
	return feedback, rows.Err()
}

// AverageRating returns the mean rating for a package, or nil when the
// package has no feedback
func (r *FeedbackRepository) AverageRating(packageID int64) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT AVG(rating) FROM feedback WHERE package_id = $1`, packageID,
	).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to get average rating: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
