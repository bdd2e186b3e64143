package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/models"
	"github.com/tourbook/tour-booking-backend/internal/utils"
	"github.com/tourbook/tour-booking-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration and login. Passwords are stored as
// bcrypt hashes, logins are throttled through the rate limit service
// and each successful login records a session with the parsed device
// fingerprint.
type AuthService struct {
	userRepo    *database.UserRepository
	sessionRepo *database.SessionRepository
	rateLimiter *RateLimitService
	jwtService  *jwt.Service
	bcryptCost  int
	logger      *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *database.UserRepository,
	sessionRepo *database.SessionRepository,
	rateLimiter *RateLimitService,
	jwtService *jwt.Service,
	bcryptCost int,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		rateLimiter: rateLimiter,
		jwtService:  jwtService,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Register creates a new user account and returns tokens so the client
// is logged in straight away
func (s *AuthService) Register(req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		UserType:     models.UserTypeUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("user registered")

	return s.issueTokens(user)
}

// Login authenticates a user by email and password. Failed attempts
// count toward the rate limit; both unknown email and wrong password
// return the same error so the response does not reveal which one it
// was.
func (s *AuthService) Login(req *models.LoginRequest, clientIP, userAgent string) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if err := s.rateLimiter.CheckLoginRateLimit(email, clientIP); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordFailure(email, clientIP)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailure(email, clientIP)
		return nil, ErrInvalidCredentials
	}

	if err := s.rateLimiter.ClearFailedLogins(email); err != nil {
		s.logger.WithError(err).Warn("failed to clear login attempts")
	}

	s.recordSession(user.ID, clientIP, userAgent)

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("user logged in")

	return s.issueTokens(user)
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return s.issueTokens(user)
}

// GetProfile returns the user's account record
func (s *AuthService) GetProfile(userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// ListSessions returns the user's recent login sessions
func (s *AuthService) ListSessions(userID int64, limit int) ([]models.UserSession, error) {
	return s.sessionRepo.ListByUser(userID, limit)
}

func (s *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, string(user.UserType))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// recordFailure logs a failed attempt; recording errors are not fatal
// to the login flow
func (s *AuthService) recordFailure(email, clientIP string) {
	if err := s.rateLimiter.RecordFailedLogin(email, clientIP); err != nil {
		s.logger.WithError(err).Warn("failed to record login attempt")
	}
}

// recordSession stores the device fingerprint of a successful login.
// Session recording failures are logged and swallowed; the login itself
// already succeeded.
func (s *AuthService) recordSession(userID int64, clientIP, userAgent string) {
	device := utils.ParseUserAgent(userAgent)
	session := &models.UserSession{
		UserID:     userID,
		IPAddress:  clientIP,
		UserAgent:  device.Raw,
		DeviceType: device.DeviceType,
		OS:         device.OS,
		Browser:    device.Browser,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		s.logger.WithError(err).Warn("failed to record login session")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
