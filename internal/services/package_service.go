package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/cache"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// PackageService serves the package catalogue. Listings go through the
// Redis cache when it is enabled; every admin mutation invalidates the
// cache so stale availability is bounded by the TTL at worst.
type PackageService struct {
	packageRepo  *database.PackageRepository
	feedbackRepo *database.FeedbackRepository
	cache        *cache.PackageCache
	logger       *logrus.Logger
}

// NewPackageService creates a new package service
func NewPackageService(
	packageRepo *database.PackageRepository,
	feedbackRepo *database.FeedbackRepository,
	packageCache *cache.PackageCache,
	logger *logrus.Logger,
) *PackageService {
	return &PackageService{
		packageRepo:  packageRepo,
		feedbackRepo: feedbackRepo,
		cache:        packageCache,
		logger:       logger,
	}
}

// List returns active packages matching the filter, cache-first
func (s *PackageService) List(ctx context.Context, filter models.PackageFilter) ([]models.PackageWithRating, error) {
	if cached, ok := s.cache.Get(ctx, filter); ok {
		return cached, nil
	}

	packages, err := s.packageRepo.List(filter)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, filter, packages)
	return packages, nil
}

// PackageDetail bundles a package with its feedback for the detail page
type PackageDetail struct {
	Package   *models.Package         `json:"package"`
	AvgRating *float64                `json:"avg_rating,omitempty"`
	Feedback  []models.FeedbackDetail `json:"feedback"`
}

// GetDetail returns an active package with its feedback and average
// rating
func (s *PackageService) GetDetail(packageID int64) (*PackageDetail, error) {
	pkg, err := s.packageRepo.GetActiveByID(packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageUnavailable
		}
		return nil, fmt.Errorf("failed to load package: %w", err)
	}

	feedback, err := s.feedbackRepo.ListByPackage(packageID)
	if err != nil {
		return nil, err
	}

	avgRating, err := s.feedbackRepo.AverageRating(packageID)
	if err != nil {
		return nil, err
	}

	return &PackageDetail{
		Package:   pkg,
		AvgRating: avgRating,
		Feedback:  feedback,
	}, nil
}

// ListAll returns every package including inactive ones (admin view)
func (s *PackageService) ListAll() ([]models.Package, error) {
	return s.packageRepo.ListAll()
}

// Create adds a new package and invalidates cached listings
func (s *PackageService) Create(ctx context.Context, req *models.CreatePackageRequest) (*models.Package, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pkg := &models.Package{
		Name:           req.Name,
		Description:    req.Description,
		Destination:    req.Destination,
		Category:       req.Category,
		Price:          req.Price,
		DurationDays:   req.DurationDays,
		AvailableSlots: req.MaxSlots,
		MaxSlots:       req.MaxSlots,
		IsActive:       true,
		ImageURL:       req.ImageURL,
	}
	if err := s.packageRepo.Create(pkg); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)

	s.logger.WithFields(logrus.Fields{
		"package_id": pkg.ID,
		"name":       pkg.Name,
		"max_slots":  pkg.MaxSlots,
	}).Info("package created")

	return pkg, nil
}

// Update edits a package and invalidates cached listings
func (s *PackageService) Update(ctx context.Context, packageID int64, req *models.UpdatePackageRequest) (*models.Package, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.packageRepo.Update(packageID, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageUnavailable
		}
		return nil, err
	}

	s.cache.Invalidate(ctx)

	return s.packageRepo.GetByID(packageID)
}

// SetActive toggles a package's visibility and invalidates cached
// listings. Deactivating a package hides it from browsing and blocks
// new bookings; existing bookings are unaffected.
func (s *PackageService) SetActive(ctx context.Context, packageID int64, active bool) error {
	if err := s.packageRepo.SetActive(packageID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPackageUnavailable
		}
		return err
	}

	s.cache.Invalidate(ctx)

	s.logger.WithFields(logrus.Fields{
		"package_id": packageID,
		"active":     active,
	}).Info("package visibility changed")

	return nil
}
