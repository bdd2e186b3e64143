package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tourbook/tour-booking-backend/internal/middleware"
	"github.com/tourbook/tour-booking-backend/internal/models"
	"github.com/tourbook/tour-booking-backend/internal/services"
)

// FeedbackHandler handles feedback submission endpoints
type FeedbackHandler struct {
	feedbackService *services.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(feedbackService *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// SubmitFeedback submits or edits feedback for a package
// @Summary Submit feedback
// @Description Rate a package the user has a confirmed booking for. Resubmitting edits the existing feedback.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body models.SubmitFeedbackRequest true "Feedback"
// @Success 200 {object} models.Feedback "Feedback recorded"
// @Failure 400 {object} map[string]interface{} "Invalid rating"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 403 {object} map[string]interface{} "No confirmed booking for this package"
// @Security BearerAuth
// @Router /api/v1/feedback [post]
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	feedback, err := h.feedbackService.SubmitFeedback(userCtx.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		case errors.Is(err, services.ErrFeedbackNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"error": "Feedback requires a confirmed booking for this package"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save feedback"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Feedback saved",
		"feedback": feedback,
	})
}

// ListMyFeedback returns the user's feedback history
// @Summary List own feedback
// @Tags Feedback
// @Produce json
// @Success 200 {object} map[string]interface{} "Feedback"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Security BearerAuth
// @Router /api/v1/feedback [get]
func (h *FeedbackHandler) ListMyFeedback(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	feedback, err := h.feedbackService.ListByUser(userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": feedback, "count": len(feedback)})
}
