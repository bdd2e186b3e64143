package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback represents a user's rating of a package, linked to exactly
// one confirmed booking. At most one feedback row exists per booking;
// repeated submissions update the existing row in place.
type Feedback struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	PackageID int64     `json:"package_id" db:"package_id"`
	BookingID uuid.UUID `json:"booking_id" db:"booking_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FeedbackDetail is feedback joined with the author's name for display
type FeedbackDetail struct {
	Feedback
	UserName string `json:"user_name" db:"user_name"`
}

// SubmitFeedbackRequest represents the request to submit or edit feedback
type SubmitFeedbackRequest struct {
	PackageID int64  `json:"package_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// RatingValid reports whether the rating is an integer in [1,5]
func (r *SubmitFeedbackRequest) RatingValid() bool {
	return r.Rating >= 1 && r.Rating <= 5
}
