package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/housie"
	"github.com/housiehub/housie-backend/internal/models"
)

func validCreateRequest() *CreateGameRequest {
	return &CreateGameRequest{
		Title:         "Friday Night",
		ScheduledTime: time.Now().Add(time.Hour),
		Deadline:      time.Now().Add(time.Hour),
		EntryFee:      100,
		PrizePool:     10000,
		MaxSpots:      10,
	}
}

func TestCreateGameDefaults(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	admin := f.addUser("admin", 0)

	game, err := svc.CreateGame(context.Background(), validCreateRequest(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusUpcoming, game.Status)
	assert.Equal(t, models.SpeedMedium, game.CallingSpeed)
	assert.Equal(t, models.DefaultPrizeDistribution(), game.PrizeDistribution)
	assert.Equal(t, admin.ID, game.CreatedBy)
}

func TestCreateGameValidation(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	admin := f.addUser("admin", 0)
	ctx := context.Background()

	req := validCreateRequest()
	req.Title = "  "
	_, err := svc.CreateGame(ctx, req, admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	req = validCreateRequest()
	req.MaxSpots = 0
	_, err = svc.CreateGame(ctx, req, admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	req = validCreateRequest()
	req.Deadline = req.ScheduledTime.Add(-time.Minute)
	_, err = svc.CreateGame(ctx, req, admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	req = validCreateRequest()
	req.CallingSpeed = "ludicrous"
	_, err = svc.CreateGame(ctx, req, admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	// Fractions summing past 1 are refused.
	req = validCreateRequest()
	req.PrizeDistribution = map[models.Pattern]float64{
		models.PatternFullHouse: 0.7,
		models.PatternTopLine:   0.4,
	}
	_, err = svc.CreateGame(ctx, req, admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
}

func TestJoinGameHappyPath(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	user := f.addUser("alice", 500)
	game := f.addGame(models.GameStatusUpcoming)

	ticket, err := svc.JoinGame(context.Background(), user.ID, game.ID, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, ticket.GameID)
	assert.Equal(t, int64(100), ticket.Price)
	require.NoError(t, housie.Validate(ticket.Numbers))
	assert.Len(t, ticket.AllNumbers, models.NumbersPerTicket)

	// Entry fee debited, spot filled.
	balance, err := f.wallet.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.FilledSpots)
}

func TestJoinGameInsufficientBalance(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	user := f.addUser("alice", 50)
	game := f.addGame(models.GameStatusUpcoming)

	_, err := svc.JoinGame(context.Background(), user.ID, game.ID, primitive.NilObjectID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Zero(t, g.FilledSpots)
}

func TestJoinGameNotJoinable(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	user := f.addUser("alice", 500)
	ctx := context.Background()

	live := f.addGame(models.GameStatusLive)
	_, err := svc.JoinGame(ctx, user.ID, live.ID, primitive.NilObjectID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	expired := f.addGame(models.GameStatusUpcoming)
	expired.Deadline = time.Now().Add(-time.Minute)
	require.NoError(t, f.games.Update(ctx, expired))
	_, err = svc.JoinGame(ctx, user.ID, expired.ID, primitive.NilObjectID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	// No money left the wallet on either failure.
	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)
}

// Concurrent joins must never oversell the last spots.
func TestJoinGameConcurrentCapacity(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	game := f.addGame(models.GameStatusUpcoming)
	game.MaxSpots = 3
	require.NoError(t, f.games.Update(ctx, game))

	const joiners = 10
	users := make([]*models.User, joiners)
	for i := range users {
		users[i] = f.addUser(string(rune('a'+i)), 500)
	}

	var wg sync.WaitGroup
	results := make([]error, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.JoinGame(ctx, users[i].ID, game.ID, primitive.NilObjectID)
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range results {
		if err == nil {
			joined++
		}
	}
	assert.Equal(t, 3, joined)

	g, err := f.games.FindByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, g.FilledSpots)

	// Losers were refunded.
	total := int64(0)
	for _, u := range users {
		balance, berr := f.wallet.Balance(ctx, u.ID)
		require.NoError(t, berr)
		total += balance
	}
	assert.Equal(t, int64(joiners*500-3*100), total)
}

func TestJoinGameLeagueMembership(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	leagues := NewLeagueService(f.leagues)
	ctx := context.Background()

	owner := f.addUser("owner", 500)
	outsider := f.addUser("outsider", 500)
	game := f.addGame(models.GameStatusUpcoming)

	league, err := leagues.CreateLeague(ctx, owner.ID, "Office League", "private")
	require.NoError(t, err)

	ticket, err := svc.JoinGame(ctx, owner.ID, game.ID, league.ID)
	require.NoError(t, err)
	assert.Equal(t, league.ID, ticket.LeagueID)

	_, err = svc.JoinGame(ctx, outsider.ID, game.ID, league.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	tickets, err := svc.LeagueTickets(ctx, league.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestCancelGameRefunds(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	user := f.addUser("alice", 500)
	game := f.addGame(models.GameStatusUpcoming)

	_, err := svc.JoinGame(ctx, user.ID, game.ID, primitive.NilObjectID)
	require.NoError(t, err)

	require.NoError(t, svc.CancelGame(ctx, game.ID))

	g, err := f.games.FindByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCancelled, g.Status)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	// Cancelling twice fails.
	err = svc.CancelGame(ctx, game.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestDeleteGameRefusesLive(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	game := f.addGame(models.GameStatusLive)

	err := svc.DeleteGame(context.Background(), game.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestUpdateGameOnlyUpcoming(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	game := f.addGame(models.GameStatusUpcoming)
	title := "Renamed"
	updated, err := svc.UpdateGame(ctx, game.ID, &UpdateGameRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	live := f.addGame(models.GameStatusLive)
	_, err = svc.UpdateGame(ctx, live.ID, &UpdateGameRequest{Title: &title})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestReplayOnlyCompleted(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusCompleted, 1, 2, 3)
	f.addTicket(user.ID, game.ID)

	replay, err := svc.Replay(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, replay.Game.CalledNumbers)
	assert.Len(t, replay.Tickets, 1)

	live := f.addGame(models.GameStatusLive)
	_, err = svc.Replay(ctx, live.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestMyGamesAndStats(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	user := f.addUser("alice", 1000)
	g1 := f.addGame(models.GameStatusUpcoming)
	g2 := f.addGame(models.GameStatusUpcoming)
	f.addGame(models.GameStatusLive)

	_, err := svc.JoinGame(ctx, user.ID, g1.ID, primitive.NilObjectID)
	require.NoError(t, err)
	_, err = svc.JoinGame(ctx, user.ID, g2.ID, primitive.NilObjectID)
	require.NoError(t, err)

	mine, err := svc.MyGames(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TotalGames)
	assert.Equal(t, int64(1), stats.LiveGames)
	assert.Equal(t, int64(2), stats.UpcomingGames)
}

func TestMarkTicketAcknowledgesCalledNumber(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive, 4, 12)
	ticket := f.addTicket(user.ID, game.ID)

	got, err := svc.MarkTicket(ctx, user.ID, ticket.ID, 4)
	require.NoError(t, err)
	assert.True(t, got.IsMarked(4))

	tk, err := f.tickets.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, tk.MarkedNumbers)

	// Repeating the acknowledgement changes nothing.
	_, err = svc.MarkTicket(ctx, user.ID, ticket.ID, 4)
	require.NoError(t, err)
	tk, err = f.tickets.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, tk.MarkedNumbers)
}

func TestMarkTicketRejectsUncalledOrOffGridNumbers(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive, 4)
	ticket := f.addTicket(user.ID, game.ID)

	// 12 is on the grid but has not been called yet.
	_, err := svc.MarkTicket(ctx, user.ID, ticket.ID, 12)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	// 5 was never printed on this ticket.
	_, err = svc.MarkTicket(ctx, user.ID, ticket.ID, 5)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	_, err = svc.MarkTicket(ctx, user.ID, ticket.ID, 91)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	tk, err := f.tickets.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, tk.MarkedNumbers)
}

func TestMarkTicketOwnershipAndGameState(t *testing.T) {
	f := newEngineFixture()
	svc := f.gameService()
	ctx := context.Background()

	owner := f.addUser("alice", 0)
	other := f.addUser("bob", 0)
	game := f.addGame(models.GameStatusLive, 4)
	ticket := f.addTicket(owner.ID, game.ID)

	_, err := svc.MarkTicket(ctx, other.ID, ticket.ID, 4)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	_, err = svc.MarkTicket(ctx, owner.ID, primitive.NewObjectID(), 4)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	upcoming := f.addGame(models.GameStatusUpcoming, 4)
	tk := f.addTicket(owner.ID, upcoming.ID)
	_, err = svc.MarkTicket(ctx, owner.ID, tk.ID, 4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}
