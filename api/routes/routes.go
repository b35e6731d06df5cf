package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/housiehub/housie-backend/internal/config"
	"github.com/housiehub/housie-backend/internal/handlers"
	"github.com/housiehub/housie-backend/internal/middleware"
)

// HandlerDependencies carries the constructed handlers into the router
type HandlerDependencies struct {
	Auth   *handlers.AuthHandler
	Game   *handlers.GameHandler
	Ticket *handlers.TicketHandler
	Claim  *handlers.ClaimHandler
	Wallet *handlers.WalletHandler
	League *handlers.LeagueHandler
	Admin  *handlers.AdminHandler
	WS     *handlers.WSHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps *HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/register", deps.Auth.Register)
			auth.POST("/login", deps.Auth.Login)
		}

		// The realtime feed carries no privileged data; an anonymous
		// spectator may watch a game board.
		public.GET("/ws", deps.WS.Serve)

		public.GET("/games", deps.Game.List)
		public.GET("/games/:id", deps.Game.Get)
		public.GET("/games/:id/replay", deps.Game.Replay)
		public.GET("/leagues", deps.League.Public)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		protected.GET("/auth/me", deps.Auth.Me)

		games := protected.Group("/games")
		{
			games.GET("/mine", deps.Game.MyGames)
			games.POST("/:id/join", deps.Game.Join)
			games.GET("/:id/tickets", deps.Game.GameTickets)
		}

		protected.GET("/tickets", deps.Ticket.MyTickets)
		protected.POST("/tickets/:id/mark", deps.Ticket.Mark)
		protected.POST("/claims", deps.Claim.Claim)

		wallet := protected.Group("/wallet")
		{
			wallet.GET("", deps.Wallet.Balance)
			wallet.GET("/transactions", deps.Wallet.Transactions)
			wallet.POST("/topup", deps.Wallet.Topup)
			wallet.POST("/withdraw", deps.Wallet.Withdraw)
		}

		leagues := protected.Group("/leagues")
		{
			leagues.POST("", deps.League.Create)
			leagues.POST("/join", deps.League.JoinByCode)
			leagues.GET("/mine", deps.League.Mine)
			leagues.GET("/:id", deps.League.Get)
			leagues.POST("/:id/join", deps.League.Join)
			leagues.GET("/:id/tickets", deps.League.Tickets)
		}
	}

	// Admin routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg), middleware.AdminOnly())
	{
		admin.GET("/stats", deps.Admin.Stats)

		admin.POST("/games", deps.Admin.CreateGame)
		admin.PUT("/games/:id", deps.Admin.UpdateGame)
		admin.DELETE("/games/:id", deps.Admin.DeleteGame)
		admin.POST("/games/:id/cancel", deps.Admin.CancelGame)
		admin.POST("/games/:id/start", deps.Admin.StartGame)
		admin.POST("/games/:id/complete", deps.Admin.CompleteGame)
		admin.POST("/games/:id/pause", deps.Admin.PauseGame)
		admin.POST("/games/:id/resume", deps.Admin.ResumeGame)
		admin.POST("/games/:id/speed", deps.Admin.SetSpeed)
		admin.POST("/games/:id/call", deps.Admin.CallNumber)
		admin.POST("/games/:id/winners", deps.Admin.DeclareWinner)

		admin.GET("/users", deps.Admin.ListUsers)
		admin.PUT("/users/:id/active", deps.Admin.SetUserActive)

		admin.GET("/payments", deps.Admin.PendingPayments)
		admin.POST("/payments/:id/approve", deps.Admin.ApprovePayment)
		admin.POST("/payments/:id/reject", deps.Admin.RejectPayment)
	}

	return router
}
