package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/config"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/ws"
)

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		SweepInterval:  10 * time.Millisecond,
		StartDelay:     0,
		SlowInterval:   5 * time.Millisecond,
		MediumInterval: 2 * time.Millisecond,
		FastInterval:   time.Millisecond,
		DefaultSpeed:   "medium",
	}
}

func (f *engineFixture) scheduler() *GameScheduler {
	return NewGameScheduler(f.games, f.tickets, f.broadcast, testGameConfig())
}

func TestSchedulerPromotesAndCompletesGame(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()

	game := f.addGame(models.GameStatusUpcoming)
	game.Deadline = time.Now().Add(-time.Second)
	require.NoError(t, f.games.Update(context.Background(), game))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		g, err := f.games.FindByID(context.Background(), game.ID)
		return err == nil && g.Status == models.GameStatusLive
	}, 2*time.Second, 5*time.Millisecond, "game was not promoted")

	assert.NotEmpty(t, f.broadcast.named(ws.EventGameStarted))

	// The loop keeps drawing until all ninety numbers are out.
	require.Eventually(t, func() bool {
		g, err := f.games.FindByID(context.Background(), game.ID)
		return err == nil && g.Status == models.GameStatusCompleted
	}, 5*time.Second, 10*time.Millisecond, "game did not complete")

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	require.Len(t, g.CalledNumbers, models.MaxNumber)

	seen := make(map[int]bool)
	for _, n := range g.CalledNumbers {
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, models.MaxNumber)
		assert.False(t, seen[n], "number %d called twice", n)
		seen[n] = true
	}

	assert.NotEmpty(t, f.broadcast.named(ws.EventGameCompleted))
	assert.False(t, s.Running(game.ID))
}

func TestSchedulerMarksTicketsOnCall(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive)
	ticket := f.addTicket(user.ID, game.ID)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		tk, err := f.tickets.FindByID(context.Background(), ticket.ID)
		return err == nil && len(tk.MarkedNumbers) == models.NumbersPerTicket
	}, 5*time.Second, 10*time.Millisecond, "ticket never fully marked")

	tk, err := f.tickets.FindByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	for _, n := range tk.MarkedNumbers {
		assert.True(t, tk.HasNumber(n))
	}
}

func TestSchedulerSingleLoopPerGame(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive)

	assert.True(t, s.startCalling(game.ID, time.Hour, 0))
	assert.False(t, s.startCalling(game.ID, time.Hour, 0))
	assert.True(t, s.Running(game.ID))

	s.Stop()
	assert.False(t, s.Running(game.ID))
}

func TestSchedulerPauseResume(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Running(game.ID)
	}, 2*time.Second, 5*time.Millisecond)

	s.Pause(context.Background(), game.ID)
	assert.False(t, s.Running(game.ID))
	require.Len(t, f.broadcast.named(ws.EventGamePaused), 1)

	// Pausing again is a no-op.
	s.Pause(context.Background(), game.ID)
	require.Len(t, f.broadcast.named(ws.EventGamePaused), 1)

	// The sweep must not restart a paused game behind the admin's back.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, s.Running(game.ID))

	calledAtPause, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)

	s.Resume(context.Background(), game.ID)
	require.Eventually(t, func() bool {
		g, ferr := f.games.FindByID(context.Background(), game.ID)
		return ferr == nil && len(g.CalledNumbers) > len(calledAtPause.CalledNumbers)
	}, 2*time.Second, 5*time.Millisecond, "calling did not resume")
	require.Len(t, f.broadcast.named(ws.EventGameResumed), 1)

	// Resuming while already calling is a no-op.
	s.Resume(context.Background(), game.ID)
	require.Len(t, f.broadcast.named(ws.EventGameResumed), 1)
}

func TestSchedulerPauseUnknownGameIsNoop(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive)

	s.Pause(context.Background(), game.ID)

	assert.Empty(t, f.broadcast.named(ws.EventGamePaused))
}

func TestSchedulerPausedGameRefusesNewLoop(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive)

	require.True(t, s.startCalling(game.ID, time.Hour, 0))
	s.Pause(context.Background(), game.ID)
	require.False(t, s.Running(game.ID))

	// A sweep that read the live game list before Pause landed must not be
	// able to register a fresh loop afterwards.
	assert.False(t, s.startCalling(game.ID, time.Hour, 0))
	assert.False(t, s.Running(game.ID))

	s.Resume(context.Background(), game.ID)
	assert.True(t, s.Running(game.ID))
	s.Stop()
}

func TestSchedulerExhaustionClearsPausedFlag(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()

	called := make([]int, 0, models.MaxNumber-1)
	for n := 1; n < models.MaxNumber; n++ {
		called = append(called, n)
	}
	game := f.addGame(models.GameStatusLive, called...)

	require.True(t, s.startCalling(game.ID, time.Hour, 0))
	s.Pause(context.Background(), game.ID)

	// The last number goes out by hand while calling is paused.
	require.NoError(t, s.CallNumber(context.Background(), game.ID, models.MaxNumber))

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCompleted, g.Status)

	s.mu.Lock()
	_, stuck := s.paused[game.ID]
	s.mu.Unlock()
	assert.False(t, stuck, "completed game left a paused entry behind")
}

func TestSchedulerBroadcastsPersistedSequence(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive, 1, 2)

	stale, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)

	// Another caller lands 3 after the snapshot above was taken.
	ok, err := f.games.AppendCalledNumber(context.Background(), game.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)

	done, err := s.applyCall(context.Background(), stale, 4)
	require.NoError(t, err)
	assert.False(t, done)

	events := f.broadcast.named(ws.EventNumberCalled)
	require.Len(t, events, 1)
	payload := events[0].Payload.(map[string]interface{})
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, payload["calledNumbers"])
	assert.Equal(t, models.MaxNumber-4, payload["remaining"])
}

func TestSchedulerStartGame(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusUpcoming)

	require.NoError(t, s.StartGame(context.Background(), game.ID))
	defer s.Stop()

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusLive, g.Status)
	assert.True(t, s.Running(game.ID))

	err = s.StartGame(context.Background(), game.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestSchedulerCompleteGameEarly(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive, 1, 2, 3)

	require.NoError(t, s.CompleteGame(context.Background(), game.ID))

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCompleted, g.Status)
	assert.Equal(t, []int{1, 2, 3}, g.CalledNumbers)
	assert.NotEmpty(t, f.broadcast.named(ws.EventGameCompleted))

	err = s.CompleteGame(context.Background(), game.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestSchedulerCallNumberManually(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()

	user := f.addUser("alice", 0)
	game := f.addGame(models.GameStatusLive)
	ticket := f.addTicket(user.ID, game.ID)

	require.NoError(t, s.CallNumber(context.Background(), game.ID, 4))

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, g.CalledNumbers)

	tk, err := f.tickets.FindByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, tk.MarkedNumbers)

	// Repeats and out-of-range numbers are rejected.
	err = s.CallNumber(context.Background(), game.ID, 4)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	err = s.CallNumber(context.Background(), game.ID, 91)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
	err = s.CallNumber(context.Background(), game.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
}

func TestSchedulerSetSpeed(t *testing.T) {
	f := newEngineFixture()
	s := f.scheduler()
	game := f.addGame(models.GameStatusLive)

	require.NoError(t, s.SetSpeed(context.Background(), game.ID, models.SpeedSlow))

	g, err := f.games.FindByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SpeedSlow, g.CallingSpeed)

	err = s.SetSpeed(context.Background(), primitive.NewObjectID(), models.SpeedSlow)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
