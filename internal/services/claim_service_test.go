package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/ws"
)

func TestClaimSuccess(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive, topLine...)
	ticket := f.addTicket(user.ID, game.ID, topLine...)

	result, err := svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	require.NoError(t, err)
	assert.Equal(t, models.PatternTopLine, result.Pattern)
	assert.Equal(t, user.ID, result.Winner.UserID)
	assert.Equal(t, int64(1500), result.Winner.Prize) // 0.15 of 10000

	// Winner recorded on the game.
	stored, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	rec, ok := stored.Winners[models.PatternTopLine]
	require.True(t, ok)
	assert.Equal(t, ticket.ID, rec.TicketID)

	// Prize credited.
	balance, err := f.wallet.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance)

	// Win announced.
	events := f.broadcast.named(ws.EventPatternWon)
	require.Len(t, events, 1)
	assert.Equal(t, game.ID.Hex(), events[0].GameID)
}

func TestClaimRepeatOnSameTicket(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive, topLine...)
	ticket := f.addTicket(user.ID, game.ID, topLine...)

	_, err := svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyClaimed)
}

func TestClaimLosesToEarlierWinner(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	alice := f.addUser("alice", 0)
	bob := f.addUser("bob", 0)
	game := f.addGame(models.GameStatusLive, topLine...)
	aliceTicket := f.addTicket(alice.ID, game.ID, topLine...)
	bobTicket := f.addTicket(bob.ID, game.ID, topLine...)

	_, err := svc.Claim(context.Background(), alice.ID, aliceTicket.ID, models.PatternTopLine)
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), bob.ID, bobTicket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyWon)

	// Bob got nothing.
	balance, err := f.wallet.Balance(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestClaimGameNotLive(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusCompleted, topLine...)
	ticket := f.addTicket(user.ID, game.ID, topLine...)

	_, err := svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestClaimPatternIncomplete(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive, 4, 12, 45)
	ticket := f.addTicket(user.ID, game.ID, 4, 12, 45)

	_, err := svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
}

func TestClaimMarkedNumberNeverCalled(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	// 87 was never called but is marked on the ticket.
	game := f.addGame(models.GameStatusLive, 4, 12, 45, 62)
	ticket := f.addTicket(user.ID, game.ID, topLine...)

	_, err := svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	// Nothing was recorded on the game.
	stored, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Winners)
}

func TestClaimOnSomeoneElsesTicket(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	alice := f.addUser("alice", 0)
	mallory := f.addUser("mallory", 0)
	game := f.addGame(models.GameStatusLive, topLine...)
	ticket := f.addTicket(alice.ID, game.ID, topLine...)

	_, err := svc.Claim(context.Background(), mallory.ID, ticket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
}

func TestClaimUnknownTicket(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()
	user := f.addUser("alice", 0)
	ghost := f.addTicket(user.ID, f.addGame(models.GameStatusLive).ID)

	require.NoError(t, f.tickets.Delete(context.Background(), ghost.ID))
	_, err := svc.Claim(context.Background(), user.ID, ghost.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// Many tickets race for the same pattern; exactly one may win.
func TestClaimConcurrentSingleWinner(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	game := f.addGame(models.GameStatusLive, topLine...)

	const claimants = 16
	users := make([]*models.User, claimants)
	tickets := make([]*models.Ticket, claimants)
	for i := range users {
		users[i] = f.addUser(string(rune('a'+i)), 0)
		tickets[i] = f.addTicket(users[i].ID, game.ID, topLine...)
	}

	var wg sync.WaitGroup
	results := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Claim(context.Background(), users[i].ID, tickets[i].ID, models.PatternTopLine)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrAlreadyWon)
		}
	}
	assert.Equal(t, 1, wins)

	// The paid prize went out exactly once.
	total := int64(0)
	for _, u := range users {
		balance, err := f.wallet.Balance(context.Background(), u.ID)
		require.NoError(t, err)
		total += balance
	}
	assert.Equal(t, int64(1500), total)
}

// A failed prize credit must not roll the win back.
func TestClaimCreditFailureKeepsWin(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimServiceWith(failingWallet{f.wallet})

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive, topLine...)
	ticket := f.addTicket(user.ID, game.ID, topLine...)

	result, err := svc.Claim(context.Background(), user.ID, ticket.ID, models.PatternTopLine)
	assert.ErrorIs(t, err, apperrors.ErrReconciliation)
	require.NotNil(t, result)

	stored, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	rec, ok := stored.Winners[models.PatternTopLine]
	require.True(t, ok)
	assert.Equal(t, ticket.ID, rec.TicketID)

	// The balance did not move.
	balance, err := f.wallet.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestDeclareWinnerSkipsMarkValidation(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive)
	// No marks at all; the admin overrides anyway.
	ticket := f.addTicket(user.ID, game.ID)

	result, err := svc.DeclareWinner(context.Background(), game.ID, ticket.ID, models.PatternFullHouse)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), result.Winner.Prize)

	// The single-winner gate still applies.
	other := f.addTicket(user.ID, game.ID)
	_, err = svc.DeclareWinner(context.Background(), game.ID, other.ID, models.PatternFullHouse)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyWon)
}

func TestDeclareWinnerWrongGame(t *testing.T) {
	f := newEngineFixture()
	svc := f.claimService()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive)
	otherGame := f.addGame(models.GameStatusLive)
	ticket := f.addTicket(user.ID, otherGame.ID)

	_, err := svc.DeclareWinner(context.Background(), game.ID, ticket.ID, models.PatternFullHouse)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
}
