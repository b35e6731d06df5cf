package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/services"
)

// AdminHandler handles the admin surface: game management, scheduler
// controls, payments and the user directory.
type AdminHandler struct {
	gameService   services.GameService
	claimService  services.ClaimService
	walletService services.WalletService
	userService   services.UserService
	scheduler     *services.GameScheduler
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	gameService services.GameService,
	claimService services.ClaimService,
	walletService services.WalletService,
	userService services.UserService,
	scheduler *services.GameScheduler,
) *AdminHandler {
	return &AdminHandler{
		gameService:   gameService,
		claimService:  claimService,
		walletService: walletService,
		userService:   userService,
		scheduler:     scheduler,
	}
}

// CreateGame handles POST /admin/games
func (h *AdminHandler) CreateGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	game, err := h.gameService.CreateGame(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

// UpdateGame handles PUT /admin/games/:id
func (h *AdminHandler) UpdateGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	game, err := h.gameService.UpdateGame(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// DeleteGame handles DELETE /admin/games/:id
func (h *AdminHandler) DeleteGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.gameService.DeleteGame(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CancelGame handles POST /admin/games/:id/cancel
func (h *AdminHandler) CancelGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.gameService.CancelGame(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// StartGame handles POST /admin/games/:id/start
func (h *AdminHandler) StartGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.scheduler.StartGame(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": true})
}

// CompleteGame handles POST /admin/games/:id/complete
func (h *AdminHandler) CompleteGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.scheduler.CompleteGame(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": true})
}

// PauseGame handles POST /admin/games/:id/pause
func (h *AdminHandler) PauseGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.scheduler.Pause(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

// ResumeGame handles POST /admin/games/:id/resume
func (h *AdminHandler) ResumeGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.scheduler.Resume(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"resumed": true})
}

type setSpeedRequest struct {
	Speed string `json:"speed" binding:"required"`
}

// SetSpeed handles POST /admin/games/:id/speed
func (h *AdminHandler) SetSpeed(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}
	speed, ok := models.ParseCallingSpeed(req.Speed)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown speed", "code": "VALIDATION_FAILURE"})
		return
	}

	if err := h.scheduler.SetSpeed(c.Request.Context(), id, speed); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"speed": speed})
}

type callNumberRequest struct {
	Number int `json:"number" binding:"required"`
}

// CallNumber handles POST /admin/games/:id/call
func (h *AdminHandler) CallNumber(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req callNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	if err := h.scheduler.CallNumber(c.Request.Context(), id, req.Number); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"called": req.Number})
}

type declareWinnerRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
	Pattern  string `json:"pattern" binding:"required"`
}

// DeclareWinner handles POST /admin/games/:id/winners
func (h *AdminHandler) DeclareWinner(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req declareWinnerRequest
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

	result, err := h.claimService.DeclareWinner(c.Request.Context(), gameID, ticketID, pattern)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.gameService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	users, err := h.userService.ListUsers(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetUserActive handles PUT /admin/users/:id/active
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	user, err := h.userService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PendingPayments handles GET /admin/payments
func (h *AdminHandler) PendingPayments(c *gin.Context) {
	txs, err := h.walletService.PendingPayments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": txs})
}

// ApprovePayment handles POST /admin/payments/:id/approve
func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tx, err := h.walletService.ApprovePayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// RejectPayment handles POST /admin/payments/:id/reject
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tx, err := h.walletService.RejectPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}
