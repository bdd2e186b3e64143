package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// FeedbackService handles feedback submission with upsert semantics.
// Feedback attaches to a confirmed booking; a second submission for the
// same booking edits the existing row instead of adding another one, so
// a package's average rating counts each booking at most once.
type FeedbackService struct {
	bookingRepo  *database.BookingRepository
	feedbackRepo *database.FeedbackRepository
	logger       *logrus.Logger
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(bookingRepo *database.BookingRepository, feedbackRepo *database.FeedbackRepository, logger *logrus.Logger) *FeedbackService {
	return &FeedbackService{
		bookingRepo:  bookingRepo,
		feedbackRepo: feedbackRepo,
		logger:       logger,
	}
}

// SubmitFeedback records or updates the user's feedback for a package.
// The target booking is the user's most recent confirmed booking for
// the package that has no feedback yet; when every confirmed booking
// already carries feedback, the most recent one is edited in place.
// Users with no confirmed booking for the package cannot leave
// feedback.
func (s *FeedbackService) SubmitFeedback(userID int64, req *models.SubmitFeedbackRequest) (*models.Feedback, error) {
	if !req.RatingValid() {
		return nil, ErrInvalidRating
	}

	booking, err := s.bookingRepo.FindFeedbackTarget(userID, req.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFeedbackNotAllowed
		}
		return nil, fmt.Errorf("failed to resolve feedback target: %w", err)
	}

	existing, err := s.feedbackRepo.GetByBookingID(booking.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up existing feedback: %w", err)
	}

	if existing != nil {
		if err := s.feedbackRepo.Update(existing.ID, req.Rating, req.Comment); err != nil {
			return nil, err
		}
		existing.Rating = req.Rating
		existing.Comment = req.Comment

		s.logger.WithFields(logrus.Fields{
			"user_id":     userID,
			"package_id":  req.PackageID,
			"booking_id":  booking.ID,
			"feedback_id": existing.ID,
		}).Info("feedback updated")

		return existing, nil
	}

	feedback := &models.Feedback{
		UserID:    userID,
		PackageID: req.PackageID,
		BookingID: booking.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := s.feedbackRepo.Create(feedback); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.LinkFeedback(booking.ID, feedback.ID); err != nil {
		return nil, fmt.Errorf("failed to mark booking feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"package_id":  req.PackageID,
		"booking_id":  booking.ID,
		"feedback_id": feedback.ID,
		"rating":      req.Rating,
	}).Info("feedback submitted")

	return feedback, nil
}

// ListByPackage returns all feedback for a package with author names
func (s *FeedbackService) ListByPackage(packageID int64) ([]models.FeedbackDetail, error) {
	return s.feedbackRepo.ListByPackage(packageID)
}

// ListByUser returns the user's feedback history
func (s *FeedbackService) ListByUser(userID int64) ([]models.Feedback, error) {
	return s.feedbackRepo.ListByUser(userID)
}
