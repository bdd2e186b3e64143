// Package queue defines booking events published to the message broker.
package queue

// BookingConfirmedEvent is published when a booking payment is
// confirmed. It carries enough for downstream consumers to notify or
// run analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID      string  `json:"booking_id"`
	UserID         int64   `json:"user_id"`
	PackageID      int64   `json:"package_id"`
	PackageName    string  `json:"package_name"`
	Destination    string  `json:"destination"`
	TravelersCount int     `json:"travelers_count"`
	TotalAmount    float64 `json:"total_amount"`
	TransactionID  string  `json:"transaction_id"`
	ConfirmedAt    string  `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking is cancelled,
// whether by the owning user or an admin.
type BookingCancelledEvent struct {
	BookingID      string `json:"booking_id"`
	UserID         int64  `json:"user_id"`
	PackageID      int64  `json:"package_id"`
	TravelersCount int    `json:"travelers_count"`
	SlotsRestored  bool   `json:"slots_restored"`
	CancelledBy    string `json:"cancelled_by"` // "user" or "admin"
	CancelledAt    string `json:"cancelled_at"`
}
