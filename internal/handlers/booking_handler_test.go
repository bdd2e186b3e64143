package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/middleware"
	"github.com/tourbook/tour-booking-backend/internal/queue"
	"github.com/tourbook/tour-booking-backend/internal/services"
	"github.com/tourbook/tour-booking-backend/pkg/validator"
)

func setupBookingTestRouter(t *testing.T, userCtx middleware.UserContext) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &database.PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	bookingRepo := database.NewBookingRepository(db)
	bookingService := services.NewBookingService(
		db,
		bookingRepo,
		database.NewPackageRepository(db),
		database.NewPaymentAuditRepository(db, logger),
		validator.NewCardValidator(),
		queue.NewPublisher("", logger),
		logger,
	)
	handler := NewBookingHandler(bookingService, bookingRepo)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserContextKey, userCtx)
		c.Next()
	})
	router.POST("/bookings", handler.CreateBooking)
	router.POST("/bookings/:id/payment", handler.ConfirmPayment)
	router.POST("/bookings/:id/cancel", handler.CancelBooking)

	return router, mock
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBookingHandler_CreateBooking(t *testing.T) {
	userCtx := middleware.UserContext{UserID: 1, Email: "user@example.com", UserType: "user"}

	t.Run("returns 201 with the pending booking", func(t *testing.T) {
		router, mock := setupBookingTestRouter(t, userCtx)

		now := time.Now()
		mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id = \$1 AND is_active = TRUE`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "name", "description", "destination", "category", "price",
				"duration_days", "available_slots", "max_slots", "is_active", "image_url",
				"created_at", "updated_at",
			}).AddRow(
				int64(7), "Highland Trek", "Five days in the highlands", "Ella", "adventure", 150.0,
				5, 10, 30, true, nil, now, now,
			))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		w := postJSON(t, router, "/bookings", gin.H{
			"package_id":      7,
			"travelers_count": 2,
			"travel_date":     "2026-10-15",
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, 300.0, resp["total_amount"])
	})

	t.Run("returns 400 for a malformed travel date", func(t *testing.T) {
		router, _ := setupBookingTestRouter(t, userCtx)

		w := postJSON(t, router, "/bookings", gin.H{
			"package_id":      7,
			"travelers_count": 2,
			"travel_date":     "15-10-2026",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 for an inactive package", func(t *testing.T) {
		router, mock := setupBookingTestRouter(t, userCtx)

		mock.ExpectQuery(`SELECT (.+) FROM packages WHERE id = \$1 AND is_active = TRUE`).
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		w := postJSON(t, router, "/bookings", gin.H{
			"package_id":      9,
			"travelers_count": 1,
			"travel_date":     "2026-10-15",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBookingHandler_ConfirmPayment(t *testing.T) {
	userCtx := middleware.UserContext{UserID: 1, Email: "user@example.com", UserType: "user"}
	bookingID := uuid.New()

	t.Run("returns 400 for malformed card details without touching inventory", func(t *testing.T) {
		router, mock := setupBookingTestRouter(t, userCtx)

		now := time.Now()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "package_id", "travelers_count", "travel_date",
				"total_amount", "status", "payment_status", "payment_method", "transaction_id",
				"card_last_four", "payment_date", "feedback_submitted", "feedback_id",
				"created_at", "updated_at",
			}).AddRow(
				bookingID, int64(1), int64(7), 2, now.AddDate(0, 1, 0),
				300.0, "pending", "pending", nil, nil,
				nil, nil, false, nil, now, now,
			))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := postJSON(t, router, "/bookings/"+bookingID.String()+"/payment", gin.H{
			"card_number": "1234",
			"card_holder": "Test User",
			"expiry_date": "12/27",
			"cvv":         "123",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns 400 for an invalid booking id", func(t *testing.T) {
		router, _ := setupBookingTestRouter(t, userCtx)

		w := postJSON(t, router, "/bookings/not-a-uuid/payment", gin.H{
			"card_number": "4111111111111111",
			"card_holder": "Test User",
			"expiry_date": "12/27",
			"cvv":         "123",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
