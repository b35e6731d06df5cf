package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories/memory"
)

// recordedEvent captures one Publish call for assertions
type recordedEvent struct {
	GameID  string
	Event   string
	Payload interface{}
}

// recordingBroadcaster collects every published event
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Publish(gameID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{GameID: gameID, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) named(event string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// failingWallet wraps a real wallet but refuses credits, for exercising the
// reconciliation path.
type failingWallet struct {
	WalletService
}

func (failingWallet) Credit(ctx context.Context, userID primitive.ObjectID, amount int64, description string) error {
	return context.DeadlineExceeded
}

// engineFixture wires the services against in-memory repositories
type engineFixture struct {
	games   *memory.GameRepository
	tickets *memory.TicketRepository
	users   *memory.UserRepository
	txs     *memory.TransactionRepository
	leagues *memory.LeagueRepository

	wallet    *WalletServiceImpl
	broadcast *recordingBroadcaster
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		games:     memory.NewGameRepository(),
		tickets:   memory.NewTicketRepository(),
		users:     memory.NewUserRepository(),
		txs:       memory.NewTransactionRepository(),
		leagues:   memory.NewLeagueRepository(),
		broadcast: &recordingBroadcaster{},
	}
	f.wallet = NewWalletService(f.users, f.txs)
	return f
}

func (f *engineFixture) gameService() *GameServiceImpl {
	return NewGameService(f.games, f.tickets, f.leagues, f.txs, f.users, f.wallet, "medium")
}

func (f *engineFixture) claimService() *ClaimServiceImpl {
	return NewClaimService(f.games, f.tickets, f.users, f.wallet, f.broadcast)
}

func (f *engineFixture) claimServiceWith(w WalletService) *ClaimServiceImpl {
	return NewClaimService(f.games, f.tickets, f.users, w, f.broadcast)
}

func (f *engineFixture) addUser(name string, balance int64) *models.User {
	user := &models.User{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Phone:         name,
		Role:          "user",
		WalletBalance: balance,
		IsActive:      true,
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

func (f *engineFixture) addGame(status models.GameStatus, called ...int) *models.Game {
	game := &models.Game{
		ID:                primitive.NewObjectID(),
		Title:             "Test Game",
		ScheduledTime:     time.Now().Add(time.Hour),
		Deadline:          time.Now().Add(time.Hour),
		EntryFee:          100,
		PrizePool:         10000,
		MaxSpots:          50,
		Status:            status,
		CallingSpeed:      models.SpeedFast,
		CalledNumbers:     append([]int{}, called...),
		PrizeDistribution: models.DefaultPrizeDistribution(),
	}
	if err := f.games.Create(context.Background(), game); err != nil {
		panic(err)
	}
	return game
}

// addTicket builds a ticket with a fixed grid, marking nums on it.
func (f *engineFixture) addTicket(userID, gameID primitive.ObjectID, marks ...int) *models.Ticket {
	grid := [models.TicketRows][models.TicketCols]int{
		{4, 12, 0, 0, 45, 0, 62, 0, 87},
		{0, 0, 23, 31, 0, 51, 0, 74, 89},
		{6, 0, 27, 0, 48, 0, 67, 78, 0},
	}
	ticket := &models.Ticket{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		GameID:     gameID,
		Numbers:    grid,
		AllNumbers: models.FlattenGrid(grid),
		Price:      100,
	}
	for _, n := range marks {
		ticket.Mark(n)
	}
	if err := f.tickets.Create(context.Background(), ticket); err != nil {
		panic(err)
	}
	return ticket
}

// topLine is the full first row of the fixture grid
var topLine = []int{4, 12, 45, 62, 87}
