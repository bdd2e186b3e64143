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
	"github.com/tourbook/tour-booking-backend/internal/queue"
	"github.com/tourbook/tour-booking-backend/pkg/validator"
)

func newBookingServiceTest(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	db := &database.PostgresDB{DB: sqlxDB}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := NewBookingService(
		db,
		database.NewBookingRepository(db),
		database.NewPackageRepository(db),
		database.NewPaymentAuditRepository(db, logger),
		validator.NewCardValidator(),
		queue.NewPublisher("", logger),
		logger,
	)
	return svc, mock
}

var bookingTestColumns = []string{
	"id", "user_id", "package_id", "travelers_count", "travel_date",
	"total_amount", "status", "payment_status", "payment_method", "transaction_id",
	"card_last_four", "payment_date", "feedback_submitted", "feedback_id",
	"created_at", "updated_at",
}

func bookingRow(id uuid.UUID, userID int64, status models.BookingStatus) *sqlmock.Rows {
	now := time.Now()
	paymentStatus := models.PaymentStatusPending
	if status == models.BookingStatusConfirmed {
		paymentStatus = models.PaymentStatusCompleted
	}
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		id, userID, int64(7), 3, now.AddDate(0, 1, 0),
		450.0, status, paymentStatus, nil, nil,
		nil, nil, false, nil,
		now, now,
	)
}

var packageTestColumns = []string{
	"id", "name", "description", "destination", "category", "price",
	"duration_days", "available_slots", "max_slots", "is_active", "image_url",
	"created_at", "updated_at",
}

func packageRow(id int64, availableSlots int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(packageTestColumns).AddRow(
		id, "Highland Trek", "Five days in the highlands", "Ella", "adventure", 150.0,
		5, availableSlots, 30, true, nil,
		now, now,
	)
}

func validCard() *models.ConfirmPaymentRequest {
	return &models.ConfirmPaymentRequest{
		CardNumber: "4111 1111 1111 1111",
		CardHolder: "Test User",
		ExpiryDate: "12/27",
		CVV:        "123",
	}
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Run("creates pending booking without touching slots", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id = \$1 AND is_active = TRUE`).
			WithArgs(int64(7)).
			WillReturnRows(packageRow(7, 10))

		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
				AddRow(time.Now(), time.Now()))

		booking, err := svc.CreateBooking(1, &models.CreateBookingRequest{
			PackageID:      7,
			TravelersCount: 3,
			TravelDate:     "2026-10-15",
		})
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, 450.0, booking.TotalAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects inactive or missing package", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id = \$1 AND is_active = TRUE`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := svc.CreateBooking(1, &models.CreateBookingRequest{
			PackageID:      99,
			TravelersCount: 2,
			TravelDate:     "2026-10-15",
		})
		assert.ErrorIs(t, err, ErrPackageUnavailable)
	})

	t.Run("rejects when advisory capacity check fails", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id = \$1 AND is_active = TRUE`).
			WithArgs(int64(7)).
			WillReturnRows(packageRow(7, 2))

		_, err := svc.CreateBooking(1, &models.CreateBookingRequest{
			PackageID:      7,
			TravelersCount: 3,
			TravelDate:     "2026-10-15",
		})
		assert.ErrorIs(t, err, ErrInsufficientSlots)
	})
}

func TestBookingService_ConfirmPayment(t *testing.T) {
	bookingID := uuid.New()

	t.Run("debits slots and confirms in one transaction", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = available_slots - \$1`).
			WithArgs(3, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings\s+SET status = \$1, payment_status = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))

		booking, err := svc.ConfirmPayment(1, bookingID, validCard(), "203.0.113.9")
		require.NoError(t, err)
		assert.True(t, booking.IsConfirmed())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient slots rolls back and leaves booking pending", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = available_slots - \$1`).
			WithArgs(3, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		_, err := svc.ConfirmPayment(1, bookingID, validCard(), "")
		assert.ErrorIs(t, err, ErrInsufficientSlots)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid card details rejected before any transaction", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := validCard()
		req.CVV = "12"
		_, err := svc.ConfirmPayment(1, bookingID, req, "")
		assert.ErrorIs(t, err, ErrInvalidPaymentDetails)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already confirmed booking cannot be paid again", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))

		_, err := svc.ConfirmPayment(1, bookingID, validCard(), "")
		assert.ErrorIs(t, err, ErrBookingNotPending)
	})

	t.Run("booking of another user is reported as not found", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 2, models.BookingStatusPending))

		_, err := svc.ConfirmPayment(1, bookingID, validCard(), "")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	bookingID := uuid.New()

	t.Run("cancelling confirmed booking restores slots", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = LEAST\(available_slots \+ \$1, max_slots\)`).
			WithArgs(3, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET status = \$1`).
			WithArgs(models.BookingStatusCancelled, bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := svc.CancelBooking(bookingID, 1, false)
		require.NoError(t, err)
		assert.True(t, booking.IsCancelled())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelling pending booking leaves slots untouched", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE bookings SET status = \$1`).
			WithArgs(models.BookingStatusCancelled, bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := svc.CancelBooking(bookingID, 1, false)
		require.NoError(t, err)
		assert.True(t, booking.IsCancelled())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelling twice is a no-op", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusCancelled))
		mock.ExpectRollback()

		booking, err := svc.CancelBooking(bookingID, 1, false)
		require.NoError(t, err)
		assert.True(t, booking.IsCancelled())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner without admin role is rejected", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))
		mock.ExpectRollback()

		_, err := svc.CancelBooking(bookingID, 2, false)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("admin may cancel any booking", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE bookings SET status = \$1`).
			WithArgs(models.BookingStatusCancelled, bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := svc.CancelBooking(bookingID, 42, true)
		assert.NoError(t, err)
	})
}

func TestBookingService_AdminSetStatus(t *testing.T) {
	bookingID := uuid.New()

	t.Run("confirming a pending booking debits slots", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = available_slots - \$1`).
			WithArgs(3, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET status = \$1`).
			WithArgs(models.BookingStatusConfirmed, bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := svc.AdminSetStatus(bookingID, models.BookingStatusConfirmed)
		require.NoError(t, err)
		assert.True(t, booking.IsConfirmed())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin confirm cannot oversell", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = available_slots - \$1`).
			WithArgs(3, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := svc.AdminSetStatus(bookingID, models.BookingStatusConfirmed)
		assert.ErrorIs(t, err, ErrInsufficientSlots)
	})

	t.Run("moving a confirmed booking back to pending credits slots", func(t *testing.T) {
		svc, mock := newBookingServiceTest(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, 1, models.BookingStatusConfirmed))
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = LEAST\(available_slots \+ \$1, max_slots\)`).
			WithArgs(3, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET status = \$1`).
			WithArgs(models.BookingStatusPending, bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := svc.AdminSetStatus(bookingID, models.BookingStatusPending)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		svc, _ := newBookingServiceTest(t)

		_, err := svc.AdminSetStatus(bookingID, models.BookingStatus("refunded"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}
