package models

import (
	"errors"
	"time"
)

// Package represents a tour package with a finite pool of traveler slots
type Package struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	Destination    string    `json:"destination" db:"destination"`
	Category       string    `json:"category" db:"category"`
	Price          float64   `json:"price" db:"price"`
	DurationDays   int       `json:"duration_days" db:"duration_days"`
	AvailableSlots int       `json:"available_slots" db:"available_slots"`
	MaxSlots       int       `json:"max_slots" db:"max_slots"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	ImageURL       *string   `json:"image_url,omitempty" db:"image_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// PackageWithRating is a package joined with its aggregated feedback rating
type PackageWithRating struct {
	Package
	AvgRating     *float64 `json:"avg_rating,omitempty" db:"avg_rating"`
	FeedbackCount int      `json:"feedback_count" db:"feedback_count"`
}

// PackageFilter holds the optional filters for package listing
type PackageFilter struct {
	Category    string `form:"category"`
	Destination string `form:"destination"`
	Search      string `form:"search"`
	SortByPrice string `form:"sort"` // "asc" or "desc"
}

// CreatePackageRequest represents the admin request to create a package
type CreatePackageRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Destination  string  `json:"destination" binding:"required"`
	Category     string  `json:"category" binding:"required"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	DurationDays int     `json:"duration_days" binding:"required,min=1"`
	MaxSlots     int     `json:"max_slots" binding:"required,min=1"`
	ImageURL     *string `json:"image_url,omitempty"`
}

// Validate validates the create request
func (r *CreatePackageRequest) Validate() error {
	if r.Price <= 0 {
		return errors.New("price must be positive")
	}
	if r.MaxSlots < 1 {
		return errors.New("max_slots must be at least 1")
	}
	return nil
}

// UpdatePackageRequest represents the admin request to edit a package.
// Slot counts are overwritten directly; Validate keeps available_slots
// inside [0, max_slots].
type UpdatePackageRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	Destination    string  `json:"destination" binding:"required"`
	Category       string  `json:"category" binding:"required"`
	Price          float64 `json:"price" binding:"required,gt=0"`
	DurationDays   int     `json:"duration_days" binding:"required,min=1"`
	AvailableSlots int     `json:"available_slots" binding:"min=0"`
	MaxSlots       int     `json:"max_slots" binding:"required,min=1"`
	ImageURL       *string `json:"image_url,omitempty"`
}

// Validate validates the update request
func (r *UpdatePackageRequest) Validate() error {
	if r.AvailableSlots > r.MaxSlots {
		return errors.New("available_slots cannot exceed max_slots")
	}
	return nil
}

// HasCapacity reports whether the package currently has room for the
// requested number of travelers. This is the creation-time check only;
// the authoritative check happens at payment confirmation via the
// conditional decrement.
func (p *Package) HasCapacity(travelers int) bool {
	return p.AvailableSlots >= travelers
}
