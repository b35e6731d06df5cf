package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
	"github.com/housiehub/housie-backend/internal/ws"
)

// ClaimResult is returned to a successful claimant
type ClaimResult struct {
	GameID   primitive.ObjectID  `json:"gameId"`
	TicketID primitive.ObjectID  `json:"ticketId"`
	Pattern  models.Pattern      `json:"pattern"`
	Winner   models.WinnerRecord `json:"winner"`
}

// ClaimService arbitrates pattern claims. At most one ticket wins each
// pattern per game; ties are broken by whoever lands the winner record
// first, everything else about timing is irrelevant.
type ClaimService interface {
	Claim(ctx context.Context, userID, ticketID primitive.ObjectID, pattern models.Pattern) (*ClaimResult, error)
	// DeclareWinner is the admin override. It still runs through the same
	// single-winner gate but skips ownership and completeness validation.
	DeclareWinner(ctx context.Context, gameID, ticketID primitive.ObjectID, pattern models.Pattern) (*ClaimResult, error)
}

// ClaimServiceImpl implements the ClaimService interface
type ClaimServiceImpl struct {
	gameRepo    repositories.GameRepository
	ticketRepo  repositories.TicketRepository
	userRepo    repositories.UserRepository
	wallet      WalletService
	broadcaster Broadcaster
}

var _ ClaimService = (*ClaimServiceImpl)(nil)

// NewClaimService creates a new ClaimService
func NewClaimService(
	gameRepo repositories.GameRepository,
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	wallet WalletService,
	broadcaster Broadcaster,
) *ClaimServiceImpl {
	return &ClaimServiceImpl{
		gameRepo:    gameRepo,
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		wallet:      wallet,
		broadcaster: broadcaster,
	}
}

// Claim validates a player's pattern claim against the server's own records
// and, if it holds up, attempts to take the pattern's single winner slot.
func (s *ClaimServiceImpl) Claim(ctx context.Context, userID, ticketID primitive.ObjectID, pattern models.Pattern) (*ClaimResult, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("ticket %s: %w", ticketID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket.UserID != userID {
		slog.Warn("Claim on another player's ticket",
			"ticketId", ticketID.Hex(), "owner", ticket.UserID.Hex(), "claimant", userID.Hex())
		return nil, fmt.Errorf("ticket %s does not belong to the claimant: %w", ticketID.Hex(), apperrors.ErrValidationFailure)
	}

	game, err := s.gameRepo.FindByID(ctx, ticket.GameID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("game %s: %w", ticket.GameID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if game.Status != models.GameStatusLive {
		return nil, fmt.Errorf("game %s is %s, claims are only accepted while live: %w", game.ID.Hex(), game.Status, apperrors.ErrInvalidState)
	}

	if ticket.HasWon(pattern) {
		return nil, fmt.Errorf("ticket %s: %w", ticketID.Hex(), apperrors.ErrAlreadyClaimed)
	}

	// Server-side verification. The ticket's marks were written by the
	// calling loop, but cross-check them against the called sequence anyway
	// so a bad mark can never pay out.
	if !ticket.CheckPattern(pattern) {
		slog.Warn("Claim rejected, pattern incomplete",
			"gameId", game.ID.Hex(), "ticketId", ticketID.Hex(), "userId", userID.Hex(), "pattern", pattern)
		return nil, fmt.Errorf("pattern %s is not complete on ticket %s: %w", pattern, ticketID.Hex(), apperrors.ErrValidationFailure)
	}
	for _, n := range ticket.MarkedNumbers {
		if !game.HasCalled(n) {
			slog.Warn("Claim rejected, marked number was never called",
				"gameId", game.ID.Hex(), "ticketId", ticketID.Hex(), "userId", userID.Hex(), "pattern", pattern, "number", n)
			return nil, fmt.Errorf("ticket %s marks number %d which was never called: %w", ticketID.Hex(), n, apperrors.ErrValidationFailure)
		}
	}

	return s.award(ctx, game, ticket, userID, pattern)
}

// DeclareWinner lets an admin hand a pattern to a ticket. The ticket must
// belong to the game and the game must still be live, but the marks are not
// checked.
func (s *ClaimServiceImpl) DeclareWinner(ctx context.Context, gameID, ticketID primitive.ObjectID, pattern models.Pattern) (*ClaimResult, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("game %s: %w", gameID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if game.Status != models.GameStatusLive {
		return nil, fmt.Errorf("game %s is %s, winners can only be declared while live: %w", gameID.Hex(), game.Status, apperrors.ErrInvalidState)
	}

	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("ticket %s: %w", ticketID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket.GameID != gameID {
		return nil, fmt.Errorf("ticket %s belongs to a different game: %w", ticketID.Hex(), apperrors.ErrValidationFailure)
	}
	if ticket.HasWon(pattern) {
		return nil, fmt.Errorf("ticket %s: %w", ticketID.Hex(), apperrors.ErrAlreadyClaimed)
	}

	slog.Info("Admin declaring winner", "gameId", gameID.Hex(), "ticketId", ticketID.Hex(), "pattern", pattern)
	return s.award(ctx, game, ticket, ticket.UserID, pattern)
}

// award takes the pattern's winner slot, flags the ticket, pays the prize
// and announces the win. The winner slot write is the arbitration point:
// exactly one caller per (game, pattern) gets true back.
func (s *ClaimServiceImpl) award(ctx context.Context, game *models.Game, ticket *models.Ticket, userID primitive.ObjectID, pattern models.Pattern) (*ClaimResult, error) {
	userName := ""
	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		userName = user.Name
	} else {
		slog.Warn("Winner name lookup failed", "userId", userID.Hex(), "error", err)
	}

	rec := models.WinnerRecord{
		UserID:     userID,
		UserName:   userName,
		TicketID:   ticket.ID,
		Prize:      game.PrizeFor(pattern),
		DeclaredAt: time.Now(),
	}

	ok, err := s.gameRepo.SetWinner(ctx, game.ID, pattern, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to record winner: %w", err)
	}
	if !ok {
		// The slot was taken, or the game left the live state under us.
		current, lerr := s.gameRepo.FindByID(ctx, game.ID)
		if lerr == nil {
			if _, taken := current.Winners[pattern]; taken {
				return nil, fmt.Errorf("pattern %s in game %s: %w", pattern, game.ID.Hex(), apperrors.ErrAlreadyWon)
			}
			return nil, fmt.Errorf("game %s is %s: %w", game.ID.Hex(), current.Status, apperrors.ErrInvalidState)
		}
		return nil, fmt.Errorf("pattern %s in game %s: %w", pattern, game.ID.Hex(), apperrors.ErrAlreadyWon)
	}

	if _, err := s.ticketRepo.SetPatternWon(ctx, ticket.ID, pattern, rec.DeclaredAt); err != nil {
		// The game document is authoritative; the ticket flag is a
		// convenience. Log and continue.
		slog.Error("Failed to flag winning pattern on ticket",
			"ticketId", ticket.ID.Hex(), "pattern", pattern, "error", err)
	}

	result := &ClaimResult{
		GameID:   game.ID,
		TicketID: ticket.ID,
		Pattern:  pattern,
		Winner:   rec,
	}

	s.broadcaster.Publish(game.ID.Hex(), ws.EventPatternWon, map[string]interface{}{
		"pattern":  pattern,
		"userId":   rec.UserID.Hex(),
		"userName": rec.UserName,
		"ticketId": rec.TicketID.Hex(),
		"prize":    rec.Prize,
	})
	slog.Info("Pattern won",
		"gameId", game.ID.Hex(), "pattern", pattern, "ticketId", ticket.ID.Hex(), "userId", userID.Hex(), "prize", rec.Prize)

	if rec.Prize > 0 {
		desc := fmt.Sprintf("Prize for %s in game %s", pattern, game.Title)
		if err := s.wallet.Credit(ctx, userID, rec.Prize, desc); err != nil {
			// The win record stands. The payout is retried by an operator,
			// never by this path, so a flaky credit cannot double-pay.
			slog.Error("Prize credit failed, needs reconciliation",
				"gameId", game.ID.Hex(), "pattern", pattern, "userId", userID.Hex(), "prize", rec.Prize, "error", err)
			return result, fmt.Errorf("prize credit for pattern %s in game %s failed: %w", pattern, game.ID.Hex(), apperrors.ErrReconciliation)
		}
	}

	return result, nil
}
