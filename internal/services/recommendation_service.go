package services

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// RecommendationService suggests packages to a user based on the
// categories and destinations of their confirmed bookings. Users with
// no history get the best-rated active packages instead.
type RecommendationService struct {
	db          database.DB
	packageRepo *database.PackageRepository
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(db database.DB, packageRepo *database.PackageRepository) *RecommendationService {
	return &RecommendationService{
		db:          db,
		packageRepo: packageRepo,
	}
}

// Recommend returns up to limit active packages the user has not booked,
// preferring the categories the user has previously travelled, then
// filling the remainder with top-rated packages
func (s *RecommendationService) Recommend(userID int64, limit int) ([]models.PackageWithRating, error) {
	if limit <= 0 {
		limit = 6
	}

	categories, err := s.bookedCategories(userID)
	if err != nil {
		return nil, err
	}

	var recommended []models.PackageWithRating
	seen := make(map[int64]bool)

	if len(categories) > 0 {
		matches, err := s.activeUnbooked(userID, categories, limit)
		if err != nil {
			return nil, err
		}
		for _, pkg := range matches {
			recommended = append(recommended, pkg)
			seen[pkg.ID] = true
		}
	}

	if len(recommended) < limit {
		fillers, err := s.topRated(userID, limit)
		if err != nil {
			return nil, err
		}
		for _, pkg := range fillers {
			if len(recommended) >= limit {
				break
			}
			if !seen[pkg.ID] {
				recommended = append(recommended, pkg)
				seen[pkg.ID] = true
			}
		}
	}

	return recommended, nil
}

// bookedCategories returns the distinct categories of the user's
// confirmed bookings
func (s *RecommendationService) bookedCategories(userID int64) ([]string, error) {
	query := `
		SELECT DISTINCT p.category
		FROM bookings b
		JOIN packages p ON p.id = b.package_id
		WHERE b.user_id = $1 AND b.status = $2`

	rows, err := s.db.Query(query, userID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// activeUnbooked returns active packages in the given categories that
// the user has not already booked, best rated first
func (s *RecommendationService) activeUnbooked(userID int64, categories []string, limit int) ([]models.PackageWithRating, error) {
	query := `
		SELECT p.id, p.name, p.description, p.destination, p.category, p.price,
			   p.duration_days, p.available_slots, p.max_slots, p.is_active, p.image_url,
			   p.created_at, p.updated_at,
			   AVG(f.rating) AS avg_rating, COUNT(f.id) AS feedback_count
		FROM packages p
		LEFT JOIN feedback f ON f.package_id = p.id
		WHERE p.is_active = TRUE
		  AND p.available_slots > 0
		  AND p.category = ANY($1)
		  AND p.id NOT IN (SELECT package_id FROM bookings WHERE user_id = $2)
		GROUP BY p.id
		ORDER BY AVG(f.rating) DESC NULLS LAST, p.available_slots DESC
		LIMIT $3`

	rows, err := s.db.Query(query, pq.Array(categories), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendations: %w", err)
	}
	defer rows.Close()

	return scanRatedPackages(rows)
}

// topRated returns the best-rated active packages the user has not
// booked, used to fill out recommendations for new users
func (s *RecommendationService) topRated(userID int64, limit int) ([]models.PackageWithRating, error) {
	query := `
		SELECT p.id, p.name, p.description, p.destination, p.category, p.price,
			   p.duration_days, p.available_slots, p.max_slots, p.is_active, p.image_url,
			   p.created_at, p.updated_at,
			   AVG(f.rating) AS avg_rating, COUNT(f.id) AS feedback_count
		FROM packages p
		LEFT JOIN feedback f ON f.package_id = p.id
		WHERE p.is_active = TRUE
		  AND p.available_slots > 0
		  AND p.id NOT IN (SELECT package_id FROM bookings WHERE user_id = $1)
		GROUP BY p.id
		ORDER BY AVG(f.rating) DESC NULLS LAST, COUNT(f.id) DESC
		LIMIT $2`

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top rated packages: %w", err)
	}
	defer rows.Close()

	return scanRatedPackages(rows)
}

func scanRatedPackages(rows *sql.Rows) ([]models.PackageWithRating, error) {
	var packages []models.PackageWithRating
	for rows.Next() {
		var pkg models.PackageWithRating
		var avgRating sql.NullFloat64
		err := rows.Scan(
			&pkg.ID, &pkg.Name, &pkg.Description, &pkg.Destination, &pkg.Category,
			&pkg.Price, &pkg.DurationDays, &pkg.AvailableSlots, &pkg.MaxSlots,
			&pkg.IsActive, &pkg.ImageURL, &pkg.CreatedAt, &pkg.UpdatedAt,
			&avgRating, &pkg.FeedbackCount,
		)
		if err != nil {
			return nil, err
		}
		if avgRating.Valid {
			rating := avgRating.Float64
			pkg.AvgRating = &rating
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}
