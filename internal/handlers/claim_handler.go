package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/services"
)

// ClaimHandler handles pattern claim requests
type ClaimHandler struct {
	claimService services.ClaimService
}

// NewClaimHandler creates a new ClaimHandler
func NewClaimHandler(claimService services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

type claimRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
	Pattern  string `json:"pattern" binding:"required"`
}

// Claim handles POST /claims
func (h *ClaimHandler) Claim(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	ticketID, err := primitive.ObjectIDFromHex(req.TicketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticketId", "code": "VALIDATION_FAILURE"})
		return
	}
	pattern, ok := models.ParsePattern(req.Pattern)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown pattern", "code": "VALIDATION_FAILURE"})
		return
	}

	result, err := h.claimService.Claim(c.Request.Context(), userID, ticketID, pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
