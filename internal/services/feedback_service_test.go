package services

import (
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

func newFeedbackServiceTest(t *testing.T) (*FeedbackService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	db := &database.PostgresDB{DB: sqlxDB}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewFeedbackService(
		database.NewBookingRepository(db),
		database.NewFeedbackRepository(db),
		logger,
	), mock
}

var feedbackTestColumns = []string{
	"id", "user_id", "package_id", "booking_id", "rating", "comment",
	"created_at", "updated_at",
}

func TestFeedbackService_SubmitFeedback(t *testing.T) {
	bookingID := uuid.New()

	t.Run("first submission creates feedback and marks the booking", func(t *testing.T) {
		svc, mock := newFeedbackServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE user_id = \$1 AND package_id = \$2 AND status = \$3`).
			WithArgs(int64(1), int64(7), models.BookingStatusConfirmed).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))
		mock.ExpectQuery(`SELECT (.+) FROM feedback\s+WHERE booking_id = \$1`).
			WithArgs(bookingID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO feedback`).
			WithArgs(int64(1), int64(7), bookingID, 5, "Great trip").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(11), time.Now(), time.Now()))
		mock.ExpectExec(`UPDATE bookings SET feedback_submitted = TRUE, feedback_id = \$1`).
			WithArgs(int64(11), bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		feedback, err := svc.SubmitFeedback(1, &models.SubmitFeedbackRequest{
			PackageID: 7,
			Rating:    5,
			Comment:   "Great trip",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(11), feedback.ID)
		assert.Equal(t, bookingID, feedback.BookingID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second submission edits the existing row in place", func(t *testing.T) {
		svc, mock := newFeedbackServiceTest(t)

		now := time.Now()
		mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE user_id = \$1 AND package_id = \$2 AND status = \$3`).
			WithArgs(int64(1), int64(7), models.BookingStatusConfirmed).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))
		mock.ExpectQuery(`SELECT (.+) FROM feedback\s+WHERE booking_id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows(feedbackTestColumns).
				AddRow(int64(11), int64(1), int64(7), bookingID, 5, "Great trip", now, now))
		mock.ExpectExec(`UPDATE feedback SET rating = \$1, comment = \$2`).
			WithArgs(2, "Changed my mind", int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		feedback, err := svc.SubmitFeedback(1, &models.SubmitFeedbackRequest{
			PackageID: 7,
			Rating:    2,
			Comment:   "Changed my mind",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(11), feedback.ID)
		assert.Equal(t, 2, feedback.Rating)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no confirmed booking means no feedback", func(t *testing.T) {
		svc, mock := newFeedbackServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE user_id = \$1 AND package_id = \$2 AND status = \$3`).
			WithArgs(int64(1), int64(7), models.BookingStatusConfirmed).
			WillReturnError(sql.ErrNoRows)

		_, err := svc.SubmitFeedback(1, &models.SubmitFeedbackRequest{
			PackageID: 7,
			Rating:    4,
		})
		assert.ErrorIs(t, err, ErrFeedbackNotAllowed)
	})

	t.Run("rating outside 1 to 5 is rejected", func(t *testing.T) {
		svc, _ := newFeedbackServiceTest(t)

		for _, rating := range []int{0, 6, -1} {
			_, err := svc.SubmitFeedback(1, &models.SubmitFeedbackRequest{
				PackageID: 7,
				Rating:    rating,
			})
			assert.ErrorIs(t, err, ErrInvalidRating)
		}
	})
}
