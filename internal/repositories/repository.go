package repositories

import (
	"context"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GameRepository defines the interface for game data operations.
//
// The conditional methods (UpdateStatus, AppendCalledNumber, SetWinner,
// ReserveSpot, ReleaseSpot) are compare-and-set operations against a single
// game document: they return false, without error, when the document no
// longer satisfies the guard. The scheduler and the claim arbitrator rely on
// these for their correctness under concurrent callers.
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error)
	FindByStatus(ctx context.Context, status models.GameStatus, limit int64) ([]*models.Game, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Game, error)
	// FindDueForPromotion returns upcoming games whose deadline has passed.
	FindDueForPromotion(ctx context.Context, now time.Time) ([]*models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByStatus(ctx context.Context, status models.GameStatus) (int64, error)
	Count(ctx context.Context) (int64, error)

	// UpdateStatus transitions status from->to, stamping startedAt or
	// completedAt as appropriate. Returns false if the game was not in the
	// from status.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.GameStatus) (bool, error)
	// AppendCalledNumber appends n to the called sequence. Returns false if
	// the game is not live or n was already called.
	AppendCalledNumber(ctx context.Context, id primitive.ObjectID, n int) (bool, error)
	// SetWinner records the winner of a pattern. Returns false if the game
	// is not live or the pattern already has a winner. This is the atomic
	// test-and-set that makes first-claim-wins arbitration safe.
	SetWinner(ctx context.Context, id primitive.ObjectID, pattern models.Pattern, rec models.WinnerRecord) (bool, error)
	// ReserveSpot increments filledSpots while the game is still joinable.
	ReserveSpot(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	// ReleaseSpot undoes a reservation that could not be completed.
	ReleaseSpot(ctx context.Context, id primitive.ObjectID) error
	SetCallingSpeed(ctx context.Context, id primitive.ObjectID, speed models.CallingSpeed) error
}

// TicketRepository defines the interface for ticket data operations
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error)
	FindByUserAndGame(ctx context.Context, userID, gameID primitive.ObjectID) ([]*models.Ticket, error)
	FindByGame(ctx context.Context, gameID primitive.ObjectID) ([]*models.Ticket, error)
	FindByLeague(ctx context.Context, leagueID primitive.ObjectID) ([]*models.Ticket, error)
	// MarkNumberForGame marks a freshly called number on every ticket of the
	// game that carries it. This is the server's authoritative marking path.
	MarkNumberForGame(ctx context.Context, gameID primitive.ObjectID, n int) error
	// AddMark marks one number on one ticket. Idempotent.
	AddMark(ctx context.Context, id primitive.ObjectID, n int) error
	// SetPatternWon flags the pattern on the ticket with its win time.
	// Returns false if the ticket already holds the pattern.
	SetPatternWon(ctx context.Context, id primitive.ObjectID, pattern models.Pattern, at time.Time) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindAll(ctx context.Context, limit int64) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	// AdjustBalance applies delta to the wallet balance. A negative delta
	// returns false when it would drive the balance below zero.
	AdjustBalance(ctx context.Context, id primitive.ObjectID, delta int64) (bool, error)
}

// TransactionRepository defines the interface for wallet ledger entries
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error)
	FindPending(ctx context.Context) ([]*models.Transaction, error)
	// UpdateStatus transitions a transaction from->to. Returns false if the
	// transaction was not in the from status.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.TransactionStatus) (bool, error)
	CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error)
}

// LeagueRepository defines the interface for league bookkeeping
type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.League, error)
	FindByCode(ctx context.Context, code string) (*models.League, error)
	FindPublic(ctx context.Context, limit int64) ([]*models.League, error)
	FindByMember(ctx context.Context, userID primitive.ObjectID) ([]*models.League, error)
	// AddMember appends the member. Returns false if already a member.
	AddMember(ctx context.Context, id primitive.ObjectID, member models.LeagueMember) (bool, error)
}
