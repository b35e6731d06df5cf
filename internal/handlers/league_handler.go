package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/housiehub/housie-backend/internal/services"
)

// LeagueHandler handles league endpoints
type LeagueHandler struct {
	leagueService services.LeagueService
	gameService   services.GameService
}

// NewLeagueHandler creates a new LeagueHandler
func NewLeagueHandler(leagueService services.LeagueService, gameService services.GameService) *LeagueHandler {
	return &LeagueHandler{leagueService: leagueService, gameService: gameService}
}

type createLeagueRequest struct {
	Name       string `json:"name" binding:"required"`
	Visibility string `json:"visibility" binding:"required"`
}

// Create handles POST /leagues
func (h *LeagueHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	var req createLeagueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	league, err := h.leagueService.CreateLeague(c.Request.Context(), userID, req.Name, req.Visibility)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, league)
}

// Get handles GET /leagues/:id
func (h *LeagueHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	league, err := h.leagueService.GetLeague(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, league)
}

// Join handles POST /leagues/:id/join for public leagues.
func (h *LeagueHandler) Join(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}
	leagueID, ok := pathID(c, "id")
	if !ok {
		return
	}

	league, err := h.leagueService.JoinLeague(c.Request.Context(), userID, leagueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, league)
}

type joinByCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// JoinByCode handles POST /leagues/join
func (h *LeagueHandler) JoinByCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	var req joinByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILURE"})
		return
	}

	league, err := h.leagueService.JoinByCode(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, league)
}

// Public handles GET /leagues
func (h *LeagueHandler) Public(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	leagues, err := h.leagueService.PublicLeagues(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leagues": leagues})
}

// Mine handles GET /leagues/mine
func (h *LeagueHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "UNAUTHORIZED"})
		return
	}

	leagues, err := h.leagueService.MyLeagues(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leagues": leagues})
}

// Tickets handles GET /leagues/:id/tickets, every ticket bought under the
// league for the members' shared scoreboard.
func (h *LeagueHandler) Tickets(c *gin.Context) {
	leagueID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tickets, err := h.gameService.LeagueTickets(c.Request.Context(), leagueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}
