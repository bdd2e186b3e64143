package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tourbook/tour-booking-backend/internal/middleware"
	"github.com/tourbook/tour-booking-backend/internal/models"
	"github.com/tourbook/tour-booking-backend/internal/services"
)

// PackageHandler handles public package browsing endpoints
type PackageHandler struct {
	packageService        *services.PackageService
	recommendationService *services.RecommendationService
}

// NewPackageHandler creates a new PackageHandler
func NewPackageHandler(packageService *services.PackageService, recommendationService *services.RecommendationService) *PackageHandler {
	return &PackageHandler{
		packageService:        packageService,
		recommendationService: recommendationService,
	}
}

// ListPackages returns active packages with optional filters
// @Summary Browse packages
// @Description List active packages with category, destination, search and price sort filters
// @Tags Packages
// @Produce json
// @Param category query string false "Category filter"
// @Param destination query string false "Destination filter (substring match)"
// @Param search query string false "Search in name and description"
// @Param sort query string false "Price sort: asc or desc"
// @Success 200 {object} map[string]interface{} "Packages"
// @Router /api/v1/packages [get]
func (h *PackageHandler) ListPackages(c *gin.Context) {
	var filter models.PackageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	packages, err := h.packageService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load packages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}

// GetPackage returns one active package with its feedback
// @Summary Get package detail
// @Tags Packages
// @Produce json
// @Param id path int true "Package ID"
// @Success 200 {object} services.PackageDetail "Package detail"
// @Failure 404 {object} map[string]interface{} "Package not found"
// @Router /api/v1/packages/{id} [get]
func (h *PackageHandler) GetPackage(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package ID"})
		return
	}

	detail, err := h.packageService.GetDetail(packageID)
	if err != nil {
		if errors.Is(err, services.ErrPackageUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load package"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetRecommendations returns personalized package suggestions
// @Summary Get recommended packages
// @Description Suggest packages based on the user's confirmed booking history
// @Tags Packages
// @Produce json
// @Param limit query int false "Max results (default 6)"
// @Success 200 {object} map[string]interface{} "Recommendations"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Security BearerAuth
// @Router /api/v1/packages/recommendations [get]
func (h *PackageHandler) GetRecommendations(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))

	packages, err := h.recommendationService.Recommend(userCtx.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}
