package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// PackageRepository handles database operations for the packages table
type PackageRepository struct {
	db DB
}

// NewPackageRepository creates a new PackageRepository
func NewPackageRepository(db DB) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `id, name, description, destination, category, price,
	   duration_days, available_slots, max_slots, is_active, image_url,
	   created_at, updated_at`

// GetByID retrieves a package by ID regardless of active state
func (r *PackageRepository) GetByID(packageID int64) (*models.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`
	return r.scanPackage(r.db.QueryRow(query, packageID))
}

// GetActiveByID retrieves a package by ID, restricted to active packages.
// Returns sql.ErrNoRows when the package is missing or inactive.
func (r *PackageRepository) GetActiveByID(packageID int64) (*models.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1 AND is_active = TRUE`
	return r.scanPackage(r.db.QueryRow(query, packageID))
}

// List retrieves active packages with their aggregated feedback rating,
// applying the optional category/destination/search filters
func (r *PackageRepository) List(filter models.PackageFilter) ([]models.PackageWithRating, error) {
	query := `
		SELECT p.id, p.name, p.description, p.destination, p.category, p.price,
			   p.duration_days, p.available_slots, p.max_slots, p.is_active, p.image_url,
			   p.created_at, p.updated_at,
			   AVG(f.rating) AS avg_rating, COUNT(f.id) AS feedback_count
		FROM packages p
		LEFT JOIN feedback f ON f.package_id = p.id
		WHERE p.is_active = TRUE`

	args := []interface{}{}
	argn := 1
	if filter.Category != "" {
		query += fmt.Sprintf(" AND p.category = $%d", argn)
		args = append(args, filter.Category)
		argn++
	}
	if filter.Destination != "" {
		query += fmt.Sprintf(" AND p.destination ILIKE $%d", argn)
		args = append(args, "%"+filter.Destination+"%")
		argn++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.description ILIKE $%d)", argn, argn)
		args = append(args, "%"+filter.Search+"%")
		argn++
	}

	query += " GROUP BY p.id"

	switch filter.SortByPrice {
	case "asc":
		query += " ORDER BY p.price ASC"
	case "desc":
		query += " ORDER BY p.price DESC"
	default:
		query += " ORDER BY p.available_slots DESC, p.id"
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	return r.scanPackagesWithRating(rows)
}

// ListAll retrieves every package including inactive ones (admin view)
func (r *PackageRepository) ListAll() ([]models.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []models.Package
	for rows.Next() {
		pkg, err := r.scanPackageRow(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)
	}
	return packages, rows.Err()
}

// Create inserts a new package. New packages start with the full slot
// pool available.
func (r *PackageRepository) Create(pkg *models.Package) error {
	query := `
		INSERT INTO packages (
			name, description, destination, category, price,
			duration_days, available_slots, max_slots, is_active, image_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(query,
		pkg.Name, pkg.Description, pkg.Destination, pkg.Category, pkg.Price,
		pkg.DurationDays, pkg.AvailableSlots, pkg.MaxSlots, pkg.IsActive, pkg.ImageURL,
	).Scan(&pkg.ID, &pkg.CreatedAt, &pkg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

// Update overwrites package fields from an admin edit. available_slots
// is clamped into [0, max_slots] so admin edits cannot break the slot
// invariant.
func (r *PackageRepository) Update(packageID int64, req *models.UpdatePackageRequest) error {
	query := `
		UPDATE packages
		SET name = $1, description = $2, destination = $3, category = $4, price = $5,
			duration_days = $6,
			available_slots = LEAST(GREATEST($7, 0), $8),
			max_slots = $8,
			image_url = $9,
			updated_at = NOW()
		WHERE id = $10`

	result, err := r.db.Exec(query,
		req.Name, req.Description, req.Destination, req.Category, req.Price,
		req.DurationDays, req.AvailableSlots, req.MaxSlots, req.ImageURL, packageID,
	)
	if err != nil {
		return fmt.Errorf("failed to update package: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive toggles a package's active flag
func (r *PackageRepository) SetActive(packageID int64, active bool) error {
	result, err := r.db.Exec(
		`UPDATE packages SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, packageID,
	)
	if err != nil {
		return fmt.Errorf("failed to toggle package: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DebitSlotsTx atomically decrements available_slots by travelers inside
// the given transaction. The WHERE clause refuses the decrement when the
// pool is too small, so the affected-row count is the availability check:
// false means insufficient slots and no mutation happened. This is the
// single point where inventory is committed.
func (r *PackageRepository) DebitSlotsTx(tx *sqlx.Tx, packageID int64, travelers int) (bool, error) {
	result, err := tx.Exec(
		`UPDATE packages
		 SET available_slots = available_slots - $1, updated_at = NOW()
		 WHERE id = $2 AND available_slots >= $1`,
		travelers, packageID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to debit slots: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CreditSlotsTx restores travelers slots inside the given transaction.
// The restore is clamped to max_slots so a concurrent admin capacity
// edit cannot leave available_slots above the pool size.
func (r *PackageRepository) CreditSlotsTx(tx *sqlx.Tx, packageID int64, travelers int) error {
	result, err := tx.Exec(
		`UPDATE packages
		 SET available_slots = LEAST(available_slots + $1, max_slots), updated_at = NOW()
		 WHERE id = $2`,
		travelers, packageID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit slots: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// scanPackage scans a single package from a QueryRow result
func (r *PackageRepository) scanPackage(row *sql.Row) (*models.Package, error) {
	var pkg models.Package
	err := row.Scan(
		&pkg.ID, &pkg.Name, &pkg.Description, &pkg.Destination, &pkg.Category,
		&pkg.Price, &pkg.DurationDays, &pkg.AvailableSlots, &pkg.MaxSlots,
		&pkg.IsActive, &pkg.ImageURL, &pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// scanPackageRow scans a single package from a Rows cursor
func (r *PackageRepository) scanPackageRow(rows *sql.Rows) (*models.Package, error) {
	var pkg models.Package
	err := rows.Scan(
		&pkg.ID, &pkg.Name, &pkg.Description, &pkg.Destination, &pkg.Category,
		&pkg.Price, &pkg.DurationDays, &pkg.AvailableSlots, &pkg.MaxSlots,
		&pkg.IsActive, &pkg.ImageURL, &pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *PackageRepository) scanPackagesWithRating(rows *sql.Rows) ([]models.PackageWithRating, error) {
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
