package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

func setupBookingRepoTest(t *testing.T) (*BookingRepository, *PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return NewBookingRepository(db), db, mock
}

func TestBookingRepository_Create(t *testing.T) {
	repo, _, mock := setupBookingRepoTest(t)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	booking := &models.Booking{
		UserID:         1,
		PackageID:      7,
		TravelersCount: 2,
		TravelDate:     now.AddDate(0, 1, 0),
		TotalAmount:    300,
	}
	err := repo.Create(booking)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, booking.ID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
}

func TestBookingRepository_ConfirmPaymentTx(t *testing.T) {
	bookingID := uuid.New()

	t.Run("updates a pending booking", func(t *testing.T) {
		repo, db, mock := setupBookingRepoTest(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings\s+SET status = \$1, payment_status = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.ConfirmPaymentTx(tx, bookingID, "Credit Card", "TXN123", "1111", time.Now())
		assert.NoError(t, err)
	})

	t.Run("non-pending booking surfaces sql.ErrNoRows", func(t *testing.T) {
		repo, db, mock := setupBookingRepoTest(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings\s+SET status = \$1, payment_status = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.ConfirmPaymentTx(tx, bookingID, "Credit Card", "TXN123", "1111", time.Now())
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestBookingRepository_FindFeedbackTarget(t *testing.T) {
	repo, _, mock := setupBookingRepoTest(t)

	bookingID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE user_id = \$1 AND package_id = \$2 AND status = \$3\s+ORDER BY feedback_submitted ASC, created_at DESC\s+LIMIT 1`).
		WithArgs(int64(1), int64(7), models.BookingStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "package_id", "travelers_count", "travel_date",
			"total_amount", "status", "payment_status", "payment_method", "transaction_id",
			"card_last_four", "payment_date", "feedback_submitted", "feedback_id",
			"created_at", "updated_at",
		}).AddRow(
			bookingID, int64(1), int64(7), 2, now,
			300.0, "confirmed", "completed", nil, nil,
			nil, nil, false, nil, now, now,
		))

	booking, err := repo.FindFeedbackTarget(1, 7)
	require.NoError(t, err)
	assert.Equal(t, bookingID, booking.ID)
	assert.True(t, booking.IsConfirmed())
}
