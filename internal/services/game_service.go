package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/housie"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
)

// CreateGameRequest is the admin payload for scheduling a game
type CreateGameRequest struct {
	Title             string                     `json:"title" binding:"required"`
	ScheduledTime     time.Time                  `json:"scheduledTime" binding:"required"`
	Deadline          time.Time                  `json:"deadline" binding:"required"`
	EntryFee          int64                      `json:"entryFee"`
	PrizePool         int64                      `json:"prizePool"`
	MaxSpots          int                        `json:"maxSpots" binding:"required"`
	CallingSpeed      string                     `json:"callingSpeed"`
	PrizeDistribution map[models.Pattern]float64 `json:"prizeDistribution"`
}

// UpdateGameRequest carries the fields an admin may change while a game is
// still upcoming. Nil pointers leave the field untouched.
type UpdateGameRequest struct {
	Title             *string                    `json:"title"`
	ScheduledTime     *time.Time                 `json:"scheduledTime"`
	Deadline          *time.Time                 `json:"deadline"`
	EntryFee          *int64                     `json:"entryFee"`
	PrizePool         *int64                     `json:"prizePool"`
	MaxSpots          *int                       `json:"maxSpots"`
	CallingSpeed      *string                    `json:"callingSpeed"`
	PrizeDistribution map[models.Pattern]float64 `json:"prizeDistribution"`
}

// GameReplay is the full record of a completed game for post-game review
type GameReplay struct {
	Game    *models.Game     `json:"game"`
	Tickets []*models.Ticket `json:"tickets"`
}

// DashboardStats summarizes platform activity for the admin dashboard
type DashboardStats struct {
	TotalUsers      int64 `json:"totalUsers"`
	ActiveUsers     int64 `json:"activeUsers"`
	TotalGames      int64 `json:"totalGames"`
	LiveGames       int64 `json:"liveGames"`
	UpcomingGames   int64 `json:"upcomingGames"`
	CompletedGames  int64 `json:"completedGames"`
	PendingPayments int64 `json:"pendingPayments"`
}

// GameService defines the interface for game CRUD, joining and reporting
type GameService interface {
	CreateGame(ctx context.Context, req *CreateGameRequest, createdBy primitive.ObjectID) (*models.Game, error)
	UpdateGame(ctx context.Context, id primitive.ObjectID, req *UpdateGameRequest) (*models.Game, error)
	DeleteGame(ctx context.Context, id primitive.ObjectID) error
	CancelGame(ctx context.Context, id primitive.ObjectID) error
	GetGame(ctx context.Context, id primitive.ObjectID) (*models.Game, error)
	ListGames(ctx context.Context, status models.GameStatus, limit int64) ([]*models.Game, error)
	MyGames(ctx context.Context, userID primitive.ObjectID) ([]*models.Game, error)
	JoinGame(ctx context.Context, userID, gameID, leagueID primitive.ObjectID) (*models.Ticket, error)
	MyTickets(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error)
	GameTickets(ctx context.Context, userID, gameID primitive.ObjectID) ([]*models.Ticket, error)
	MarkTicket(ctx context.Context, userID, ticketID primitive.ObjectID, n int) (*models.Ticket, error)
	LeagueTickets(ctx context.Context, leagueID primitive.ObjectID) ([]*models.Ticket, error)
	Replay(ctx context.Context, gameID primitive.ObjectID) (*GameReplay, error)
	Stats(ctx context.Context) (*DashboardStats, error)
}

// GameServiceImpl implements the GameService interface
type GameServiceImpl struct {
	gameRepo   repositories.GameRepository
	ticketRepo repositories.TicketRepository
	leagueRepo repositories.LeagueRepository
	txRepo     repositories.TransactionRepository
	userRepo   repositories.UserRepository
	wallet     WalletService
	config     *gameServiceConfig

	rngMu sync.Mutex
	rng   *rand.Rand
}

type gameServiceConfig struct {
	defaultSpeed models.CallingSpeed
}

var _ GameService = (*GameServiceImpl)(nil)

// NewGameService creates a new GameService
func NewGameService(
	gameRepo repositories.GameRepository,
	ticketRepo repositories.TicketRepository,
	leagueRepo repositories.LeagueRepository,
	txRepo repositories.TransactionRepository,
	userRepo repositories.UserRepository,
	wallet WalletService,
	defaultSpeed string,
) *GameServiceImpl {
	speed, ok := models.ParseCallingSpeed(defaultSpeed)
	if !ok {
		speed = models.SpeedMedium
	}
	return &GameServiceImpl{
		gameRepo:   gameRepo,
		ticketRepo: ticketRepo,
		leagueRepo: leagueRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		wallet:     wallet,
		config:     &gameServiceConfig{defaultSpeed: speed},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateGame schedules a new game in the upcoming state.
func (s *GameServiceImpl) CreateGame(ctx context.Context, req *CreateGameRequest, createdBy primitive.ObjectID) (*models.Game, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", apperrors.ErrValidationFailure)
	}
	if req.MaxSpots < 1 {
		return nil, fmt.Errorf("maxSpots must be at least 1: %w", apperrors.ErrValidationFailure)
	}
	if req.EntryFee < 0 || req.PrizePool < 0 {
		return nil, fmt.Errorf("entryFee and prizePool must not be negative: %w", apperrors.ErrValidationFailure)
	}
	if req.Deadline.Before(req.ScheduledTime) {
		return nil, fmt.Errorf("deadline must not precede scheduledTime: %w", apperrors.ErrValidationFailure)
	}

	speed := s.config.defaultSpeed
	if req.CallingSpeed != "" {
		parsed, ok := models.ParseCallingSpeed(req.CallingSpeed)
		if !ok {
			return nil, fmt.Errorf("unknown calling speed %q: %w", req.CallingSpeed, apperrors.ErrValidationFailure)
		}
		speed = parsed
	}

	dist := req.PrizeDistribution
	if len(dist) == 0 {
		dist = models.DefaultPrizeDistribution()
	} else if !models.ValidatePrizeDistribution(dist) {
		return nil, fmt.Errorf("prize distribution fractions must lie in [0,1] and sum to at most 1: %w", apperrors.ErrValidationFailure)
	}

	game := &models.Game{
		ID:                primitive.NewObjectID(),
		Title:             strings.TrimSpace(req.Title),
		ScheduledTime:     req.ScheduledTime,
		Deadline:          req.Deadline,
		EntryFee:          req.EntryFee,
		PrizePool:         req.PrizePool,
		MaxSpots:          req.MaxSpots,
		Status:            models.GameStatusUpcoming,
		CallingSpeed:      speed,
		CalledNumbers:     []int{},
		PrizeDistribution: dist,
		CreatedBy:         createdBy,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	slog.Info("Game created", "gameId", game.ID.Hex(), "title", game.Title, "deadline", game.Deadline)
	return game, nil
}

// UpdateGame edits a game that has not started. Live, completed and
// cancelled games are immutable.
func (s *GameServiceImpl) UpdateGame(ctx context.Context, id primitive.ObjectID, req *UpdateGameRequest) (*models.Game, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusUpcoming {
		return nil, fmt.Errorf("game %s is %s and cannot be edited: %w", id.Hex(), game.Status, apperrors.ErrInvalidState)
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("title is required: %w", apperrors.ErrValidationFailure)
		}
		game.Title = strings.TrimSpace(*req.Title)
	}
	if req.ScheduledTime != nil {
		game.ScheduledTime = *req.ScheduledTime
	}
	if req.Deadline != nil {
		game.Deadline = *req.Deadline
	}
	if game.Deadline.Before(game.ScheduledTime) {
		return nil, fmt.Errorf("deadline must not precede scheduledTime: %w", apperrors.ErrValidationFailure)
	}
	if req.EntryFee != nil {
		if *req.EntryFee < 0 {
			return nil, fmt.Errorf("entryFee must not be negative: %w", apperrors.ErrValidationFailure)
		}
		game.EntryFee = *req.EntryFee
	}
	if req.PrizePool != nil {
		if *req.PrizePool < 0 {
			return nil, fmt.Errorf("prizePool must not be negative: %w", apperrors.ErrValidationFailure)
		}
		game.PrizePool = *req.PrizePool
	}
	if req.MaxSpots != nil {
		if *req.MaxSpots < game.FilledSpots {
			return nil, fmt.Errorf("maxSpots cannot drop below the %d spots already filled: %w", game.FilledSpots, apperrors.ErrValidationFailure)
		}
		game.MaxSpots = *req.MaxSpots
	}
	if req.CallingSpeed != nil {
		speed, ok := models.ParseCallingSpeed(*req.CallingSpeed)
		if !ok {
			return nil, fmt.Errorf("unknown calling speed %q: %w", *req.CallingSpeed, apperrors.ErrValidationFailure)
		}
		game.CallingSpeed = speed
	}
	if req.PrizeDistribution != nil {
		if !models.ValidatePrizeDistribution(req.PrizeDistribution) {
			return nil, fmt.Errorf("prize distribution fractions must lie in [0,1] and sum to at most 1: %w", apperrors.ErrValidationFailure)
		}
		game.PrizeDistribution = req.PrizeDistribution
	}

	game.UpdatedAt = time.Now()
	if err := s.gameRepo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	return game, nil
}

// DeleteGame removes a game that is not live. Tickets already sold against
// an upcoming game are refunded first via CancelGame semantics.
func (s *GameServiceImpl) DeleteGame(ctx context.Context, id primitive.ObjectID) error {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return err
	}
	if game.Status == models.GameStatusLive {
		return fmt.Errorf("game %s is live and cannot be deleted: %w", id.Hex(), apperrors.ErrInvalidState)
	}
	if game.Status == models.GameStatusUpcoming && game.FilledSpots > 0 {
		s.refundTickets(ctx, game)
	}
	if err := s.gameRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	slog.Info("Game deleted", "gameId", id.Hex(), "title", game.Title)
	return nil
}

// CancelGame moves an upcoming game to cancelled and refunds every ticket.
func (s *GameServiceImpl) CancelGame(ctx context.Context, id primitive.ObjectID) error {
	ok, err := s.gameRepo.UpdateStatus(ctx, id, models.GameStatusUpcoming, models.GameStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel game: %w", err)
	}
	if !ok {
		game, gerr := s.GetGame(ctx, id)
		if gerr != nil {
			return gerr
		}
		return fmt.Errorf("game %s is %s, only upcoming games can be cancelled: %w", id.Hex(), game.Status, apperrors.ErrInvalidState)
	}

	game, err := s.GetGame(ctx, id)
	if err != nil {
		return err
	}
	s.refundTickets(ctx, game)
	slog.Info("Game cancelled", "gameId", id.Hex(), "refundedSpots", game.FilledSpots)
	return nil
}

// refundTickets credits each ticket holder the price they paid. Individual
// refund failures are logged for reconciliation and do not stop the rest.
func (s *GameServiceImpl) refundTickets(ctx context.Context, game *models.Game) {
	tickets, err := s.ticketRepo.FindByGame(ctx, game.ID)
	if err != nil {
		slog.Error("Failed to load tickets for refund", "gameId", game.ID.Hex(), "error", err)
		return
	}
	for _, t := range tickets {
		if t.Price <= 0 {
			continue
		}
		desc := fmt.Sprintf("Refund for cancelled game %s", game.Title)
		if err := s.wallet.Credit(ctx, t.UserID, t.Price, desc); err != nil {
			slog.Error("Refund failed, needs reconciliation",
				"gameId", game.ID.Hex(), "ticketId", t.ID.Hex(), "userId", t.UserID.Hex(), "amount", t.Price, "error", err)
		}
	}
}

// GetGame returns the current game snapshot: status, called numbers,
// winners so far.
func (s *GameServiceImpl) GetGame(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("game %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return game, nil
}

// ListGames returns games in the given status, soonest first.
func (s *GameServiceImpl) ListGames(ctx context.Context, status models.GameStatus, limit int64) ([]*models.Game, error) {
	games, err := s.gameRepo.FindByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// MyGames returns the games the user holds tickets in.
func (s *GameServiceImpl) MyGames(ctx context.Context, userID primitive.ObjectID) ([]*models.Game, error) {
	tickets, err := s.ticketRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}

	seen := make(map[primitive.ObjectID]bool, len(tickets))
	ids := make([]primitive.ObjectID, 0, len(tickets))
	for _, t := range tickets {
		if !seen[t.GameID] {
			seen[t.GameID] = true
			ids = append(ids, t.GameID)
		}
	}
	if len(ids) == 0 {
		return []*models.Game{}, nil
	}

	games, err := s.gameRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	return games, nil
}

// JoinGame purchases one ticket: debit the entry fee, reserve a spot, then
// generate and persist the ticket. Later failures unwind the earlier steps.
func (s *GameServiceImpl) JoinGame(ctx context.Context, userID, gameID, leagueID primitive.ObjectID) (*models.Ticket, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch {
	case game.Status != models.GameStatusUpcoming:
		return nil, fmt.Errorf("game %s is %s and cannot be joined: %w", gameID.Hex(), game.Status, apperrors.ErrInvalidState)
	case game.FilledSpots >= game.MaxSpots:
		return nil, fmt.Errorf("game %s is full: %w", gameID.Hex(), apperrors.ErrInvalidState)
	case !now.Before(game.Deadline):
		return nil, fmt.Errorf("join deadline for game %s has passed: %w", gameID.Hex(), apperrors.ErrInvalidState)
	}

	if !leagueID.IsZero() {
		league, err := s.leagueRepo.FindByID(ctx, leagueID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fmt.Errorf("league %s: %w", leagueID.Hex(), apperrors.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load league: %w", err)
		}
		if !league.IsMember(userID) {
			return nil, fmt.Errorf("not a member of league %s: %w", leagueID.Hex(), apperrors.ErrInvalidState)
		}
	}

	if game.EntryFee > 0 {
		desc := fmt.Sprintf("Entry fee for game %s", game.Title)
		if err := s.wallet.Debit(ctx, userID, game.EntryFee, desc); err != nil {
			return nil, err
		}
	}

	ok, err := s.gameRepo.ReserveSpot(ctx, gameID, time.Now())
	if err != nil {
		s.refundEntry(ctx, userID, game)
		return nil, fmt.Errorf("failed to reserve spot: %w", err)
	}
	if !ok {
		// Lost the race for the last spot, or the deadline passed between
		// the check and the reservation.
		s.refundEntry(ctx, userID, game)
		return nil, fmt.Errorf("game %s is no longer joinable: %w", gameID.Hex(), apperrors.ErrInvalidState)
	}

	grid, err := s.generateGrid()
	if err != nil {
		s.unwindJoin(ctx, userID, game)
		return nil, fmt.Errorf("failed to generate ticket: %w", err)
	}

	ticket := &models.Ticket{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		GameID:        gameID,
		LeagueID:      leagueID,
		Numbers:       grid,
		AllNumbers:    models.FlattenGrid(grid),
		MarkedNumbers: []int{},
		Price:         game.EntryFee,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		s.unwindJoin(ctx, userID, game)
		return nil, fmt.Errorf("failed to persist ticket: %w", err)
	}

	slog.Info("Ticket purchased", "gameId", gameID.Hex(), "ticketId", ticket.ID.Hex(), "userId", userID.Hex())
	return ticket, nil
}

func (s *GameServiceImpl) generateGrid() ([models.TicketRows][models.TicketCols]int, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return housie.Generate(s.rng)
}

func (s *GameServiceImpl) refundEntry(ctx context.Context, userID primitive.ObjectID, game *models.Game) {
	if game.EntryFee <= 0 {
		return
	}
	desc := fmt.Sprintf("Refund of entry fee for game %s", game.Title)
	if err := s.wallet.Credit(ctx, userID, game.EntryFee, desc); err != nil {
		slog.Error("Entry fee refund failed, needs reconciliation",
			"gameId", game.ID.Hex(), "userId", userID.Hex(), "amount", game.EntryFee, "error", err)
	}
}

func (s *GameServiceImpl) unwindJoin(ctx context.Context, userID primitive.ObjectID, game *models.Game) {
	if err := s.gameRepo.ReleaseSpot(ctx, game.ID); err != nil {
		slog.Error("Failed to release reserved spot", "gameId", game.ID.Hex(), "error", err)
	}
	s.refundEntry(ctx, userID, game)
}

// MyTickets returns every ticket the user has bought.
func (s *GameServiceImpl) MyTickets(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	tickets, err := s.ticketRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// GameTickets returns the user's tickets for one game.
func (s *GameServiceImpl) GameTickets(ctx context.Context, userID, gameID primitive.ObjectID) ([]*models.Ticket, error) {
	tickets, err := s.ticketRepo.FindByUserAndGame(ctx, userID, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// MarkTicket records a player's acknowledgement of a called number on their
// own ticket. The scheduler's bulk marking stays authoritative; this path
// only accepts numbers that are on the grid and already called, so a client
// can never mark ahead of the draw. Marking an already marked number is a
// no-op.
func (s *GameServiceImpl) MarkTicket(ctx context.Context, userID, ticketID primitive.ObjectID, n int) (*models.Ticket, error) {
	if n < 1 || n > models.MaxNumber {
		return nil, fmt.Errorf("number %d is outside [1,%d]: %w", n, models.MaxNumber, apperrors.ErrValidationFailure)
	}
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("ticket %s: %w", ticketID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket.UserID != userID {
		slog.Warn("Mark attempt on another player's ticket",
			"ticketId", ticketID.Hex(), "ownerId", ticket.UserID.Hex(), "userId", userID.Hex())
		return nil, fmt.Errorf("ticket %s does not belong to the requesting user: %w", ticketID.Hex(), apperrors.ErrValidationFailure)
	}
	if !ticket.HasNumber(n) {
		return nil, fmt.Errorf("number %d is not on ticket %s: %w", n, ticketID.Hex(), apperrors.ErrValidationFailure)
	}

	game, err := s.GetGame(ctx, ticket.GameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusLive {
		return nil, fmt.Errorf("game %s is %s, tickets can only be marked while live: %w", game.ID.Hex(), game.Status, apperrors.ErrInvalidState)
	}
	if !game.HasCalled(n) {
		return nil, fmt.Errorf("number %d has not been called in game %s: %w", n, game.ID.Hex(), apperrors.ErrValidationFailure)
	}

	if !ticket.IsMarked(n) {
		if err := s.ticketRepo.AddMark(ctx, ticketID, n); err != nil {
			return nil, fmt.Errorf("failed to record mark: %w", err)
		}
		ticket.Mark(n)
	}
	return ticket, nil
}

// LeagueTickets returns every ticket bought under a league banner.
func (s *GameServiceImpl) LeagueTickets(ctx context.Context, leagueID primitive.ObjectID) ([]*models.Ticket, error) {
	tickets, err := s.ticketRepo.FindByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// Replay returns the completed game with its full called sequence, winners
// and tickets.
func (s *GameServiceImpl) Replay(ctx context.Context, gameID primitive.ObjectID) (*GameReplay, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusCompleted {
		return nil, fmt.Errorf("game %s is %s, replay is available once completed: %w", gameID.Hex(), game.Status, apperrors.ErrInvalidState)
	}
	tickets, err := s.ticketRepo.FindByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return &GameReplay{Game: game, Tickets: tickets}, nil
}

// Stats aggregates counts for the admin dashboard.
func (s *GameServiceImpl) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalUsers, err = s.userRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.ActiveUsers, err = s.userRepo.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	if stats.TotalGames, err = s.gameRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count games: %w", err)
	}
	if stats.LiveGames, err = s.gameRepo.CountByStatus(ctx, models.GameStatusLive); err != nil {
		return nil, fmt.Errorf("failed to count live games: %w", err)
	}
	if stats.UpcomingGames, err = s.gameRepo.CountByStatus(ctx, models.GameStatusUpcoming); err != nil {
		return nil, fmt.Errorf("failed to count upcoming games: %w", err)
	}
	if stats.CompletedGames, err = s.gameRepo.CountByStatus(ctx, models.GameStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to count completed games: %w", err)
	}
	if stats.PendingPayments, err = s.txRepo.CountByStatus(ctx, models.TransactionPending); err != nil {
		return nil, fmt.Errorf("failed to count pending payments: %w", err)
	}

	return stats, nil
}
