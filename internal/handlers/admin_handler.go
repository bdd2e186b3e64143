package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tourbook/tour-booking-backend/internal/database"
	"github.com/tourbook/tour-booking-backend/internal/middleware"
	"github.com/tourbook/tour-booking-backend/internal/models"
	"github.com/tourbook/tour-booking-backend/internal/services"
)

// AdminHandler handles the admin surface: package management, booking
// oversight and the user directory. All routes behind it require the
// admin role.
type AdminHandler struct {
	packageService *services.PackageService
	bookingService *services.BookingService
	bookingRepo    *database.BookingRepository
	userRepo       *database.UserRepository
	auditRepo      *database.PaymentAuditRepository
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	packageService *services.PackageService,
	bookingService *services.BookingService,
	bookingRepo *database.BookingRepository,
	userRepo *database.UserRepository,
	auditRepo *database.PaymentAuditRepository,
) *AdminHandler {
	return &AdminHandler{
		packageService: packageService,
		bookingService: bookingService,
		bookingRepo:    bookingRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
	}
}

// ListPackages returns every package including inactive ones
// @Summary List all packages (admin)
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Packages"
// @Security BearerAuth
// @Router /api/v1/admin/packages [get]
func (h *AdminHandler) ListPackages(c *gin.Context) {
	packages, err := h.packageService.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load packages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}

// CreatePackage adds a new package
// @Summary Create a package (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body models.CreatePackageRequest true "Package"
// @Success 201 {object} models.Package "Package created"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Security BearerAuth
// @Router /api/v1/admin/packages [post]
func (h *AdminHandler) CreatePackage(c *gin.Context) {
	var req models.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	pkg, err := h.packageService.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create package"})
		return
	}

	c.JSON(http.StatusCreated, pkg)
}

// UpdatePackage edits an existing package
// @Summary Update a package (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Package ID"
// @Param request body models.UpdatePackageRequest true "Package"
// @Success 200 {object} models.Package "Package updated"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Package not found"
// @Security BearerAuth
// @Router /api/v1/admin/packages/{id} [put]
func (h *AdminHandler) UpdatePackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package ID"})
		return
	}

	var req models.UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, err := h.packageService.Update(c.Request.Context(), packageID, &req)
	if err != nil {
		if errors.Is(err, services.ErrPackageUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update package"})
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// SetPackageActive toggles a package's visibility
// @Summary Activate or deactivate a package (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Package ID"
// @Success 200 {object} map[string]interface{} "Visibility changed"
// @Failure 404 {object} map[string]interface{} "Package not found"
// @Security BearerAuth
// @Router /api/v1/admin/packages/{id}/active [patch]
func (h *AdminHandler) SetPackageActive(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package ID"})
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.packageService.SetActive(c.Request.Context(), packageID, *req.Active); err != nil {
		if errors.Is(err, services.ErrPackageUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update package"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Package visibility updated", "active": *req.Active})
}

// ListBookings returns every booking with package details
// @Summary List all bookings (admin)
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Bookings"
// @Security BearerAuth
// @Router /api/v1/admin/bookings [get]
func (h *AdminHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookingRepo.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// SetBookingStatus moves a booking to a new lifecycle status
// @Summary Set booking status (admin)
// @Description Transition a booking between pending, confirmed and cancelled. Slot accounting follows the transition.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking "Booking updated"
// @Failure 400 {object} map[string]interface{} "Invalid status"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Not enough slots to confirm"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/status [patch]
func (h *AdminHandler) SetBookingStatus(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req struct {
		Status models.BookingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	booking, err := h.bookingService.AdminSetStatus(bookingID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown booking status"})
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, services.ErrInsufficientSlots):
			c.JSON(http.StatusConflict, gin.H{"error": "Not enough slots to confirm this booking"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update booking"})
		}
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetBookingAudit returns the payment audit trail for a booking
// @Summary Get booking payment audit (admin)
// @Tags Admin
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{} "Audit trail"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/audit [get]
func (h *AdminHandler) GetBookingAudit(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	audits, err := h.auditRepo.ListByBooking(bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit trail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": audits, "count": len(audits)})
}

// GetStats returns booking counts by status
// @Summary Get booking statistics (admin)
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Statistics"
// @Security BearerAuth
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	counts, err := h.bookingRepo.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings_by_status": counts})
}

// ListUsers returns the user directory
// @Summary List users (admin)
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Users"
// @Security BearerAuth
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// SetUserType promotes or demotes a user
// @Summary Change a user's role (admin)
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{} "Role changed"
// @Failure 400 {object} map[string]interface{} "Invalid role"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Security BearerAuth
// @Router /api/v1/admin/users/{id}/role [patch]
func (h *AdminHandler) SetUserType(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		UserType models.UserType `json:"user_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.UserType != models.UserTypeUser && req.UserType != models.UserTypeAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown user type"})
		return
	}

	// An admin cannot demote themselves; another admin has to do it.
	if userCtx, ok := middleware.GetUserContext(c); ok && userCtx.UserID == userID && req.UserType != models.UserTypeAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote your own account"})
		return
	}

	if err := h.userRepo.SetUserType(userID, req.UserType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User role updated", "user_type": req.UserType})
}
