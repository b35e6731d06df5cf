package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/housiehub/housie-backend/internal/services"
)

type markRequest struct {
	Number int `json:"number" binding:"required"`
}

// TicketHandler handles ticket listing endpoints
type TicketHandler struct {
	gameService services.GameService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(gameService services.GameService) *TicketHandler {
	return &TicketHandler{gameService: gameService}
}

// MyTickets handles GET /tickets
func (h *TicketHandler) MyTickets(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	tickets, err := h.gameService.MyTickets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// Mark handles POST /tickets/:id/mark
func (h *TicketHandler) Mark(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	ticket, err := h.gameService.MarkTicket(c.Request.Context(), userID, ticketID, req.Number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
