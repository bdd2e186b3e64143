package database

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

func setupPackageRepoTest(t *testing.T) (*PackageRepository, *PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return NewPackageRepository(db), db, mock
}

func TestPackageRepository_DebitSlotsTx(t *testing.T) {
	t.Run("reports success when the pool covers the request", func(t *testing.T) {
		repo, db, mock := setupPackageRepoTest(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = available_slots - \$1.*WHERE id = \$2 AND available_slots >= \$1`).
			WithArgs(4, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Beginx()
		require.NoError(t, err)

		ok, err := repo.DebitSlotsTx(tx, 7, 4)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports failure without error when the pool is too small", func(t *testing.T) {
		repo, db, mock := setupPackageRepoTest(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = available_slots - \$1`).
			WithArgs(4, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := db.Beginx()
		require.NoError(t, err)

		ok, err := repo.DebitSlotsTx(tx, 7, 4)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPackageRepository_CreditSlotsTx(t *testing.T) {
	t.Run("restores slots with the max_slots clamp", func(t *testing.T) {
		repo, db, mock := setupPackageRepoTest(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = LEAST\(available_slots \+ \$1, max_slots\)`).
			WithArgs(4, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.CreditSlotsTx(tx, 7, 4)
		assert.NoError(t, err)
	})

	t.Run("missing package surfaces sql.ErrNoRows", func(t *testing.T) {
		repo, db, mock := setupPackageRepoTest(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE packages\s+SET available_slots = LEAST\(available_slots \+ \$1, max_slots\)`).
			WithArgs(4, int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.CreditSlotsTx(tx, 99, 4)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPackageRepository_Update(t *testing.T) {
	t.Run("missing package surfaces sql.ErrNoRows", func(t *testing.T) {
		repo, _, mock := setupPackageRepoTest(t)

		mock.ExpectExec(`UPDATE packages`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(99, updateReqFixture())
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func updateReqFixture() *models.UpdatePackageRequest {
	return &models.UpdatePackageRequest{
		Name:           "Highland Trek",
		Destination:    "Ella",
		Category:       "adventure",
		Price:          150,
		DurationDays:   5,
		AvailableSlots: 10,
		MaxSlots:       30,
	}
}
