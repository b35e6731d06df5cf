package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/services"
)

// GameHandler handles the player-facing game endpoints
type GameHandler struct {
	gameService services.GameService
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// List handles GET /games?status=upcoming&limit=50
func (h *GameHandler) List(c *gin.Context) {
	status := models.GameStatus(c.DefaultQuery("status", string(models.GameStatusUpcoming)))
	switch status {
	case models.GameStatusUpcoming, models.GameStatusLive, models.GameStatusCompleted, models.GameStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status", "code": "VALIDATION_FAILURE"})
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	games, err := h.gameService.ListGames(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// Get handles GET /games/:id. The response is the authoritative snapshot a
// reconnecting client rebuilds its board from: status, called numbers and
// winners so far.
func (h *GameHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	game, err := h.gameService.GetGame(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// MyGames handles GET /games/mine
func (h *GameHandler) MyGames(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	games, err := h.gameService.MyGames(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

type joinGameRequest struct {
	LeagueID string `json:"leagueId"`
}

// Join handles POST /games/:id/join
func (h *GameHandler) Join(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}
	leagueID := primitive.NilObjectID
	if req.LeagueID != "" {
		parsed, err := primitive.ObjectIDFromHex(req.LeagueID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leagueId", "code": "VALIDATION_FAILURE"})
			return
		}
		leagueID = parsed
	}

	ticket, err := h.gameService.JoinGame(c.Request.Context(), userID, gameID, leagueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// GameTickets handles GET /games/:id/tickets, the caller's tickets for the
// game.
func (h *GameHandler) GameTickets(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tickets, err := h.gameService.GameTickets(c.Request.Context(), userID, gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// Replay handles GET /games/:id/replay for completed games.
func (h *GameHandler) Replay(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	replay, err := h.gameService.Replay(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, replay)
}
