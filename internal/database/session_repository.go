package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tourbook/tour-booking-backend/internal/models"
)

// SessionRepository handles database operations for login sessions
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create records a login session with its device fingerprint
func (r *SessionRepository) Create(session *models.UserSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO user_sessions (id, user_id, ip_address, user_agent, device_type, os, browser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		session.ID, session.UserID, session.IPAddress, session.UserAgent,
		session.DeviceType, session.OS, session.Browser, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's login sessions, newest first
func (r *SessionRepository) ListByUser(userID int64, limit int) ([]models.UserSession, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, ip_address, user_agent, device_type, os, browser, created_at
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.UserSession
	for rows.Next() {
		var s models.UserSession
		err := rows.Scan(
			&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent,
			&s.DeviceType, &s.OS, &s.Browser, &s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
