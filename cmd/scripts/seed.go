package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/config"
	"github.com/housiehub/housie-backend/internal/models"
	mongorepo "github.com/housiehub/housie-backend/internal/repositories/mongodb"
	"github.com/housiehub/housie-backend/pkg/mongodb"
)

// Seeds a development database with an admin account and a few games at
// staggered deadlines.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	client, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := seedAdmin(ctx, db)
	if err != nil {
		slog.Error("Failed to seed admin", "error", err)
		os.Exit(1)
	}

	if err := seedGames(ctx, db, admin.ID); err != nil {
		slog.Error("Failed to seed games", "error", err)
		os.Exit(1)
	}

	slog.Info("Seeding complete")
}

func seedAdmin(ctx context.Context, db *mongo.Database) (*models.User, error) {
	userRepo := mongorepo.NewUserRepository(db)

	existing, err := userRepo.FindByPhone(ctx, "9999999999")
	if err == nil {
		slog.Info("Admin already present", "userId", existing.ID.Hex())
		return existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &models.User{
		ID:            primitive.NewObjectID(),
		Name:          "Admin",
		Phone:         "9999999999",
		Email:         "admin@example.com",
		Password:      string(hashed),
		Role:          "admin",
		WalletBalance: 0,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	slog.Info("Admin created", "userId", admin.ID.Hex(), "phone", admin.Phone)
	return admin, nil
}

func seedGames(ctx context.Context, db *mongo.Database, adminID primitive.ObjectID) error {
	gameRepo := mongorepo.NewGameRepository(db)

	now := time.Now()
	seeds := []struct {
		title    string
		start    time.Duration
		entryFee int64
		pool     int64
		spots    int
		speed    models.CallingSpeed
	}{
		{"Evening Express", 15 * time.Minute, 100, 5000, 100, models.SpeedFast},
		{"Night Owl Special", 2 * time.Hour, 250, 20000, 200, models.SpeedMedium},
		{"Weekend Jackpot", 24 * time.Hour, 500, 100000, 500, models.SpeedSlow},
	}

	for _, s := range seeds {
		game := &models.Game{
			ID:                primitive.NewObjectID(),
			Title:             s.title,
			ScheduledTime:     now.Add(s.start),
			Deadline:          now.Add(s.start),
			EntryFee:          s.entryFee,
			PrizePool:         s.pool,
			MaxSpots:          s.spots,
			Status:            models.GameStatusUpcoming,
			CallingSpeed:      s.speed,
			CalledNumbers:     []int{},
			PrizeDistribution: models.DefaultPrizeDistribution(),
			CreatedBy:         adminID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := gameRepo.Create(ctx, game); err != nil {
			return err
		}
		slog.Info("Game seeded", "gameId", game.ID.Hex(), "title", game.Title)
	}
	return nil
}
