package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/models"
	"github.com/tourbook/tour-booking-backend/internal/queue"
	"github.com/tourbook/tour-booking-backend/pkg/validator"
)

// BookingService orchestrates the booking lifecycle:
// create (pending) -> confirm payment (slots debited) -> cancel (slots
// restored). Inventory is committed only at payment confirmation, via a
// conditional decrement executed in the same transaction as the status
// change, so two bookings racing for the last slots cannot both
// confirm.
type BookingService struct {
	db            database.DB
	bookingRepo   *database.BookingRepository
	packageRepo   *database.PackageRepository
	auditRepo     *database.PaymentAuditRepository
	cardValidator *validator.CardValidator
	publisher     *queue.Publisher
	logger        *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	db database.DB,
	bookingRepo *database.BookingRepository,
	packageRepo *database.PackageRepository,
	auditRepo *database.PaymentAuditRepository,
	cardValidator *validator.CardValidator,
	publisher *queue.Publisher,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:            db,
		bookingRepo:   bookingRepo,
		packageRepo:   packageRepo,
		auditRepo:     auditRepo,
		cardValidator: cardValidator,
		publisher:     publisher,
		logger:        logger,
	}
}

// CreateBooking creates a pending booking against an active package.
// The total amount is fixed from the package price at this moment and
// never recomputed. Slots are NOT reserved here; the availability check
// is advisory and the authoritative check happens at confirmation.
func (s *BookingService) CreateBooking(userID int64, req *models.CreateBookingRequest) (*models.Booking, error) {
	pkg, err := s.packageRepo.GetActiveByID(req.PackageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageUnavailable
		}
		return nil, fmt.Errorf("failed to load package: %w", err)
	}

	if !pkg.HasCapacity(req.TravelersCount) {
		return nil, ErrInsufficientSlots
	}

	booking := &models.Booking{
		UserID:         userID,
		PackageID:      pkg.ID,
		TravelersCount: req.TravelersCount,
		TravelDate:     req.ParsedTravelDate(),
		TotalAmount:    pkg.Price * float64(req.TravelersCount),
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
		"package_id": pkg.ID,
		"travelers":  req.TravelersCount,
		"amount":     booking.TotalAmount,
	}).Info("booking created")

	return booking, nil
}

// ConfirmPayment validates the card details and, inside one
// transaction, debits the slot pool and moves the booking to
// confirmed/completed. The conditional decrement is where the slot
// invariant is enforced: when the pool is too small the transaction
// rolls back, the booking stays pending and inventory is untouched.
func (s *BookingService) ConfirmPayment(userID int64, bookingID uuid.UUID, req *models.ConfirmPaymentRequest, clientIP string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	if !booking.IsPending() {
		return nil, ErrBookingNotPending
	}

	cardNumber, err := s.cardValidator.Validate(validator.CardDetails{
		Number: req.CardNumber,
		Holder: req.CardHolder,
		Expiry: req.ExpiryDate,
		CVV:    req.CVV,
	})
	if err != nil {
		s.auditPayment(booking, userID, models.PaymentAuditInvalidDetails, nil, err, clientIP)
		return nil, ErrInvalidPaymentDetails
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-read under lock so a concurrent confirm or cancel on the same
	// booking serializes here.
	locked, err := s.bookingRepo.GetByIDForUpdateTx(tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	if !locked.IsPending() {
		return nil, ErrBookingNotPending
	}

	debited, err := s.packageRepo.DebitSlotsTx(tx, locked.PackageID, locked.TravelersCount)
	if err != nil {
		return nil, err
	}
	if !debited {
		s.auditPayment(locked, userID, models.PaymentAuditInsufficientSlots, nil, ErrInsufficientSlots, clientIP)
		return nil, ErrInsufficientSlots
	}

	transactionID := generateTransactionID()
	lastFour := s.cardValidator.LastFour(cardNumber)
	paidAt := time.Now()

	if err := s.bookingRepo.ConfirmPaymentTx(tx, bookingID, "Credit Card", transactionID, lastFour, paidAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	s.auditPayment(locked, userID, models.PaymentAuditConfirmed, &transactionID, nil, clientIP)

	s.logger.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"user_id":        userID,
		"package_id":     locked.PackageID,
		"transaction_id": transactionID,
	}).Info("payment confirmed, slots debited")

	confirmed, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}

	s.publishConfirmed(confirmed, transactionID, paidAt)

	return confirmed, nil
}

// CancelBooking cancels a booking on behalf of its owner or an admin.
// Slots are restored only when the booking had reached confirmed, i.e.
// when they were actually debited; cancelling a pending booking leaves
// inventory untouched. Cancelling an already-cancelled booking is an
// idempotent no-op so slots can never be credited twice.
func (s *BookingService) CancelBooking(bookingID uuid.UUID, actorID int64, actorIsAdmin bool) (*models.Booking, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdateTx(tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking.UserID != actorID && !actorIsAdmin {
		return nil, ErrUnauthorized
	}

	if booking.IsCancelled() {
		return booking, nil
	}

	restored := false
	if booking.SlotsDebited() {
		if err := s.packageRepo.CreditSlotsTx(tx, booking.PackageID, booking.TravelersCount); err != nil {
			return nil, err
		}
		restored = true
	}

	if err := s.bookingRepo.SetStatusTx(tx, bookingID, models.BookingStatusCancelled); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"actor_id":       actorID,
		"admin":          actorIsAdmin,
		"slots_restored": restored,
	}).Info("booking cancelled")

	s.publishCancelled(booking, restored, actorIsAdmin)

	booking.Status = models.BookingStatusCancelled
	return booking, nil
}

// AdminSetStatus is the generalized admin transition between lifecycle
// states. Slot accounting follows the booking's movement relative to
// confirmed: entering confirmed debits the pool (conditionally, so an
// admin cannot oversell either), leaving confirmed credits it back.
func (s *BookingService) AdminSetStatus(bookingID uuid.UUID, newStatus models.BookingStatus) (*models.Booking, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdateTx(tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking.Status == newStatus {
		return booking, nil
	}

	wasConfirmed := booking.IsConfirmed()
	nowConfirmed := newStatus == models.BookingStatusConfirmed

	if nowConfirmed && !wasConfirmed {
		debited, err := s.packageRepo.DebitSlotsTx(tx, booking.PackageID, booking.TravelersCount)
		if err != nil {
			return nil, err
		}
		if !debited {
			return nil, ErrInsufficientSlots
		}
	}
	if wasConfirmed && !nowConfirmed {
		if err := s.packageRepo.CreditSlotsTx(tx, booking.PackageID, booking.TravelersCount); err != nil {
			return nil, err
		}
	}

	if err := s.bookingRepo.SetStatusTx(tx, bookingID, newStatus); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"from":       booking.Status,
		"to":         newStatus,
	}).Info("booking status updated by admin")

	if newStatus == models.BookingStatusCancelled {
		s.publishCancelled(booking, wasConfirmed, true)
	}

	booking.Status = newStatus
	return booking, nil
}

// GetBookingForUser returns a booking only when it belongs to the user
func (s *BookingService) GetBookingForUser(userID int64, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// auditPayment records a payment attempt. Audit failures are logged by
// the repository and deliberately not propagated: the payment outcome
// is already decided when the audit row is written.
func (s *BookingService) auditPayment(booking *models.Booking, userID int64, event models.PaymentAuditEvent, transactionID *string, cause error, clientIP string) {
	audit := &models.PaymentAudit{
		BookingID:     booking.ID,
		UserID:        userID,
		EventType:     event,
		Amount:        booking.TotalAmount,
		TransactionID: transactionID,
	}
	if cause != nil {
		msg := cause.Error()
		audit.ErrorMessage = &msg
	}
	if clientIP != "" {
		audit.IPAddress = &clientIP
	}
	_ = s.auditRepo.Log(audit)
}

func (s *BookingService) publishConfirmed(booking *models.Booking, transactionID string, paidAt time.Time) {
	if !s.publisher.Enabled() {
		return
	}

	event := queue.BookingConfirmedEvent{
		BookingID:      booking.ID.String(),
		UserID:         booking.UserID,
		PackageID:      booking.PackageID,
		TravelersCount: booking.TravelersCount,
		TotalAmount:    booking.TotalAmount,
		TransactionID:  transactionID,
		ConfirmedAt:    paidAt.UTC().Format(time.RFC3339),
	}
	if pkg, err := s.packageRepo.GetByID(booking.PackageID); err == nil {
		event.PackageName = pkg.Name
		event.Destination = pkg.Destination
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.publisher.PublishBookingConfirmed(ctx, event)
}

func (s *BookingService) publishCancelled(booking *models.Booking, restored, byAdmin bool) {
	if !s.publisher.Enabled() {
		return
	}

	cancelledBy := "user"
	if byAdmin {
		cancelledBy = "admin"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.publisher.PublishBookingCancelled(ctx, queue.BookingCancelledEvent{
		BookingID:      booking.ID.String(),
		UserID:         booking.UserID,
		PackageID:      booking.PackageID,
		TravelersCount: booking.TravelersCount,
		SlotsRestored:  restored,
		CancelledBy:    cancelledBy,
		CancelledAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// generateTransactionID produces an opaque payment reference
func generateTransactionID() string {
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
