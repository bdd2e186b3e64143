// Package services implements the business logic of the booking
// system. Sentinel errors below distinguish domain-level rejections
// from store failures: a wrapped repository error means the store
// misbehaved (HTTP 5xx), a sentinel means the request was refused by a
// business rule (HTTP 4xx). Handlers must never conflate the two.
package services

import "errors"

var (
	// ErrPackageUnavailable is returned when the package does not exist
	// or is inactive
	ErrPackageUnavailable = errors.New("package not found or unavailable")

	// ErrInsufficientSlots is returned when the package cannot cover the
	// requested traveler count
	ErrInsufficientSlots = errors.New("insufficient available slots")

	// ErrBookingNotFound is returned when the booking does not exist or
	// does not belong to the requesting user
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingNotPending is returned when a payment is attempted on a
	// booking that already left the pending state
	ErrBookingNotPending = errors.New("booking is not awaiting payment")

	// ErrInvalidPaymentDetails is returned when card details fail format
	// validation
	ErrInvalidPaymentDetails = errors.New("invalid payment details")

	// ErrInvalidRating is returned when a feedback rating is outside [1,5]
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrUnauthorized is returned when the actor is neither the booking
	// owner nor an admin
	ErrUnauthorized = errors.New("not allowed to act on this booking")

	// ErrFeedbackNotAllowed is returned when the user has no confirmed
	// booking for the package
	ErrFeedbackNotAllowed = errors.New("feedback requires a confirmed booking")

	// ErrInvalidStatus is returned when an admin requests an unknown
	// booking status
	ErrInvalidStatus = errors.New("invalid booking status")

	// ErrEmailTaken is returned when registering with an email that
	// already has an account
	ErrEmailTaken = errors.New("email is already registered")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")
)
