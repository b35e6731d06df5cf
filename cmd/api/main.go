package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/api/routes"
	"github.com/housiehub/housie-backend/internal/config"
	"github.com/housiehub/housie-backend/internal/handlers"
	mongorepo "github.com/housiehub/housie-backend/internal/repositories/mongodb"
	"github.com/housiehub/housie-backend/internal/services"
	"github.com/housiehub/housie-backend/internal/ws"
	"github.com/housiehub/housie-backend/pkg/mongodb"
)

func main() {
	// Optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)

	gameRepo := mongorepo.NewGameRepository(db)
	ticketRepo := mongorepo.NewTicketRepository(db)
	userRepo := mongorepo.NewUserRepository(db)
	txRepo := mongorepo.NewTransactionRepository(db)
	leagueRepo := mongorepo.NewLeagueRepository(db)

	hub := ws.NewHub()

	walletService := services.NewWalletService(userRepo, txRepo)
	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo)
	leagueService := services.NewLeagueService(leagueRepo)
	gameService := services.NewGameService(gameRepo, ticketRepo, leagueRepo, txRepo, userRepo, walletService, cfg.Game.DefaultSpeed)
	claimService := services.NewClaimService(gameRepo, ticketRepo, userRepo, walletService, hub)
	scheduler := services.NewGameScheduler(gameRepo, ticketRepo, hub, cfg.Game)

	deps := &routes.HandlerDependencies{
		Auth:   handlers.NewAuthHandler(authService, userService),
		Game:   handlers.NewGameHandler(gameService),
		Ticket: handlers.NewTicketHandler(gameService),
		Claim:  handlers.NewClaimHandler(claimService),
		Wallet: handlers.NewWalletHandler(walletService),
		League: handlers.NewLeagueHandler(leagueService, gameService),
		Admin:  handlers.NewAdminHandler(gameService, claimService, walletService, userService, scheduler),
		WS:     handlers.NewWSHandler(hub),
	}

	router := routes.SetupRouter(cfg, deps)

	scheduler.Start()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down")

	// Stop accepting requests first, then halt the calling loops so no
	// number goes out after clients have been cut off.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	scheduler.Stop()

	slog.Info("Server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
