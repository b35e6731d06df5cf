package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/config"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
	"github.com/housiehub/housie-backend/internal/ws"
)

const callTimeout = 5 * time.Second

// GameScheduler drives the autonomous side of every live game: it promotes
// upcoming games whose deadline has passed, then calls numbers for each live
// game on its configured cadence until all ninety are out or the game is
// completed. One calling loop runs per live game; the registry guarantees a
// game never has two.
type GameScheduler struct {
	gameRepo    repositories.GameRepository
	ticketRepo  repositories.TicketRepository
	broadcaster Broadcaster
	cfg         config.GameConfig

	mu     sync.Mutex
	loops  map[primitive.ObjectID]*callingLoop
	paused map[primitive.ObjectID]bool

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// callingLoop is the handle for one game's calling goroutine
type callingLoop struct {
	cancel chan struct{}
	reset  chan time.Duration
}

// NewGameScheduler creates a new GameScheduler
func NewGameScheduler(
	gameRepo repositories.GameRepository,
	ticketRepo repositories.TicketRepository,
	broadcaster Broadcaster,
	cfg config.GameConfig,
) *GameScheduler {
	return &GameScheduler{
		gameRepo:    gameRepo,
		ticketRepo:  ticketRepo,
		broadcaster: broadcaster,
		cfg:         cfg,
		loops:       make(map[primitive.ObjectID]*callingLoop),
		paused:      make(map[primitive.ObjectID]bool),
		stop:        make(chan struct{}),
	}
}

// Start launches the promotion sweep and resumes calling for games that were
// live when the process last stopped.
func (s *GameScheduler) Start() {
	s.wg.Add(1)
	go s.sweepLoop()
	slog.Info("Game scheduler started", "sweepInterval", s.cfg.SweepInterval)
}

// Stop halts the sweep and every calling loop, then waits for them to exit.
func (s *GameScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	slog.Info("Game scheduler stopped")
}

// Running reports whether a calling loop currently exists for the game.
func (s *GameScheduler) Running(gameID primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[gameID]
	return ok
}

func (s *GameScheduler) sweepLoop() {
	defer s.wg.Done()

	s.sweepOnce()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

// sweepOnce promotes every upcoming game past its deadline and restarts
// calling for live games without a loop, which covers process restarts.
func (s *GameScheduler) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	due, err := s.gameRepo.FindDueForPromotion(ctx, time.Now())
	if err != nil {
		slog.Warn("Promotion sweep failed, will retry on next tick", "error", err)
	} else {
		for _, game := range due {
			if err := s.promote(ctx, game); err != nil {
				slog.Warn("Failed to promote game", "gameId", game.ID.Hex(), "error", err)
			}
		}
	}

	live, err := s.gameRepo.FindByStatus(ctx, models.GameStatusLive, 0)
	if err != nil {
		slog.Warn("Live game scan failed, will retry on next tick", "error", err)
		return
	}
	for _, game := range live {
		s.startCalling(game.ID, s.intervalFor(game.CallingSpeed), 0)
	}
}

// promote transitions one upcoming game to live and schedules its first call.
func (s *GameScheduler) promote(ctx context.Context, game *models.Game) error {
	ok, err := s.gameRepo.UpdateStatus(ctx, game.ID, models.GameStatusUpcoming, models.GameStatusLive)
	if err != nil {
		return err
	}
	if !ok {
		// Someone else promoted or cancelled it since the sweep query.
		return nil
	}

	slog.Info("Game is live", "gameId", game.ID.Hex(), "title", game.Title, "speed", game.CallingSpeed)
	s.broadcaster.Publish(game.ID.Hex(), ws.EventGameStarted, map[string]interface{}{
		"title":        game.Title,
		"callingSpeed": game.CallingSpeed,
		"prizePool":    game.PrizePool,
	})
	s.startCalling(game.ID, s.intervalFor(game.CallingSpeed), s.cfg.StartDelay)
	return nil
}

// StartGame is the admin path for taking a game live before its deadline.
func (s *GameScheduler) StartGame(ctx context.Context, gameID primitive.ObjectID) error {
	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != models.GameStatusUpcoming {
		return fmt.Errorf("game %s is %s and cannot be started: %w", gameID.Hex(), game.Status, apperrors.ErrInvalidState)
	}
	return s.promote(ctx, game)
}

// CompleteGame is the admin path for ending a live game early. The called
// sequence and winners recorded so far stand.
func (s *GameScheduler) CompleteGame(ctx context.Context, gameID primitive.ObjectID) error {
	ok, err := s.gameRepo.UpdateStatus(ctx, gameID, models.GameStatusLive, models.GameStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	if !ok {
		game, lerr := s.loadGame(ctx, gameID)
		if lerr != nil {
			return lerr
		}
		return fmt.Errorf("game %s is %s, only live games can be completed: %w", gameID.Hex(), game.Status, apperrors.ErrInvalidState)
	}

	s.stopCalling(gameID)
	s.mu.Lock()
	delete(s.paused, gameID)
	s.mu.Unlock()
	s.announceCompleted(ctx, gameID)
	return nil
}

// Pause suspends calling for a live game without changing its status.
// Pausing a game that is not live, not calling, or missing is a no-op.
func (s *GameScheduler) Pause(ctx context.Context, gameID primitive.ObjectID) {
	// The flag and the loop removal happen under one lock so a concurrent
	// startCalling either sees the loop still registered or sees the flag.
	s.mu.Lock()
	loop, ok := s.loops[gameID]
	if ok {
		s.paused[gameID] = true
		close(loop.cancel)
		delete(s.loops, gameID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	slog.Info("Game paused", "gameId", gameID.Hex())
	s.broadcaster.Publish(gameID.Hex(), ws.EventGamePaused, nil)
}

// Resume restarts calling for a live game that was paused. Resuming a game
// that is already calling, not live, or missing is a no-op.
func (s *GameScheduler) Resume(ctx context.Context, gameID primitive.ObjectID) {
	game, err := s.loadGame(ctx, gameID)
	if err != nil || game.Status != models.GameStatusLive {
		return
	}
	s.mu.Lock()
	delete(s.paused, gameID)
	s.mu.Unlock()
	if !s.startCalling(gameID, s.intervalFor(game.CallingSpeed), 0) {
		return
	}
	slog.Info("Game resumed", "gameId", gameID.Hex())
	s.broadcaster.Publish(gameID.Hex(), ws.EventGameResumed, nil)
}

// SetSpeed changes the game's calling cadence. A running loop picks the new
// interval up from its next tick.
func (s *GameScheduler) SetSpeed(ctx context.Context, gameID primitive.ObjectID, speed models.CallingSpeed) error {
	if _, err := s.loadGame(ctx, gameID); err != nil {
		return err
	}
	if err := s.gameRepo.SetCallingSpeed(ctx, gameID, speed); err != nil {
		return fmt.Errorf("failed to set calling speed: %w", err)
	}

	s.mu.Lock()
	loop, ok := s.loops[gameID]
	s.mu.Unlock()
	if ok {
		select {
		case loop.reset <- s.intervalFor(speed):
		default:
		}
	}
	slog.Info("Calling speed changed", "gameId", gameID.Hex(), "speed", speed)
	return nil
}

// CallNumber is the admin path for calling one specific number by hand,
// typically while the automatic loop is paused.
func (s *GameScheduler) CallNumber(ctx context.Context, gameID primitive.ObjectID, n int) error {
	if n < 1 || n > models.MaxNumber {
		return fmt.Errorf("number %d is outside [1,%d]: %w", n, models.MaxNumber, apperrors.ErrValidationFailure)
	}
	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != models.GameStatusLive {
		return fmt.Errorf("game %s is %s, numbers can only be called while live: %w", gameID.Hex(), game.Status, apperrors.ErrInvalidState)
	}
	if game.HasCalled(n) {
		return fmt.Errorf("number %d was already called in game %s: %w", n, gameID.Hex(), apperrors.ErrInvalidState)
	}

	_, err = s.applyCall(ctx, game, n)
	return err
}

func (s *GameScheduler) intervalFor(speed models.CallingSpeed) time.Duration {
	switch speed {
	case models.SpeedSlow:
		return s.cfg.SlowInterval
	case models.SpeedFast:
		return s.cfg.FastInterval
	default:
		return s.cfg.MediumInterval
	}
}

// startCalling registers a loop for the game unless one already exists or
// the game is paused. Returns true if a new loop was started.
func (s *GameScheduler) startCalling(gameID primitive.ObjectID, interval, delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stop:
		return false
	default:
	}
	if _, ok := s.loops[gameID]; ok {
		return false
	}
	if s.paused[gameID] {
		return false
	}

	loop := &callingLoop{
		cancel: make(chan struct{}),
		reset:  make(chan time.Duration, 1),
	}
	s.loops[gameID] = loop
	s.wg.Add(1)
	go s.run(gameID, loop, interval, delay)
	return true
}

// stopCalling cancels the game's loop if one exists. Returns true if a loop
// was cancelled.
func (s *GameScheduler) stopCalling(gameID primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	loop, ok := s.loops[gameID]
	if !ok {
		return false
	}
	close(loop.cancel)
	delete(s.loops, gameID)
	return true
}

// removeLoop deregisters the loop when its goroutine exits on its own.
func (s *GameScheduler) removeLoop(gameID primitive.ObjectID, loop *callingLoop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loops[gameID] == loop {
		delete(s.loops, gameID)
	}
}

func (s *GameScheduler) run(gameID primitive.ObjectID, loop *callingLoop, interval, delay time.Duration) {
	defer s.wg.Done()
	defer s.removeLoop(gameID, loop)

	// Each loop gets its own source; the game ID decorrelates loops started
	// within the same clock tick.
	seed := time.Now().UnixNano() ^ int64(binary.BigEndian.Uint64(gameID[:8]))
	rng := rand.New(rand.NewSource(seed))

	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-loop.cancel:
			t.Stop()
			return
		case <-s.stop:
			t.Stop()
			return
		case <-t.C:
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-loop.cancel:
			return
		case <-s.stop:
			return
		case d := <-loop.reset:
			ticker.Reset(d)
		case <-ticker.C:
			if s.callOnce(gameID, rng) {
				return
			}
		}
	}
}

// callOnce draws and announces one number. Returns true when the loop should
// stop: the game completed, vanished, or left the live state. A transient
// storage failure skips the tick and keeps the loop alive.
func (s *GameScheduler) callOnce(gameID primitive.ObjectID, rng *rand.Rand) bool {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			slog.Warn("Calling loop stopping, game no longer exists", "gameId", gameID.Hex())
			return true
		}
		slog.Warn("Skipping call tick, failed to load game", "gameId", gameID.Hex(), "error", err)
		return false
	}
	if game.Status != models.GameStatusLive {
		return true
	}

	remaining := game.RemainingNumbers()
	if len(remaining) == 0 {
		s.completeExhausted(ctx, gameID)
		return true
	}

	n := remaining[rng.Intn(len(remaining))]
	done, err := s.applyCall(ctx, game, n)
	if err != nil {
		slog.Warn("Skipping call tick", "gameId", gameID.Hex(), "number", n, "error", err)
		return false
	}
	return done
}

// applyCall appends n to the called sequence, marks it on every holding
// ticket and broadcasts it. Returns true when n was the last number.
func (s *GameScheduler) applyCall(ctx context.Context, game *models.Game, n int) (bool, error) {
	ok, err := s.gameRepo.AppendCalledNumber(ctx, game.ID, n)
	if err != nil {
		return false, fmt.Errorf("failed to append called number: %w", err)
	}
	if !ok {
		// The game left the live state, or a concurrent caller got the same
		// number in first.
		current, lerr := s.loadGame(ctx, game.ID)
		if lerr != nil {
			return true, lerr
		}
		if current.Status != models.GameStatusLive {
			return true, fmt.Errorf("game %s is %s: %w", game.ID.Hex(), current.Status, apperrors.ErrInvalidState)
		}
		return false, fmt.Errorf("number %d raced with a concurrent call: %w", n, apperrors.ErrTransientStorage)
	}

	if err := s.ticketRepo.MarkNumberForGame(ctx, game.ID, n); err != nil {
		// Clients recover the full mark state from the game snapshot, so a
		// missed bulk mark delays claims rather than corrupting them.
		slog.Error("Failed to mark called number on tickets", "gameId", game.ID.Hex(), "number", n, "error", err)
	}

	// Broadcast the persisted sequence rather than the caller's snapshot, so
	// a manual call racing a loop tick never publishes a sequence missing the
	// other caller's number.
	called := append(append([]int{}, game.CalledNumbers...), n)
	if current, lerr := s.gameRepo.FindByID(ctx, game.ID); lerr == nil {
		called = current.CalledNumbers
	}
	slog.Info("Number called", "gameId", game.ID.Hex(), "number", n, "callCount", len(called))
	s.broadcaster.Publish(game.ID.Hex(), ws.EventNumberCalled, map[string]interface{}{
		"number":        n,
		"calledNumbers": called,
		"remaining":     models.MaxNumber - len(called),
	})

	if len(called) >= models.MaxNumber {
		s.completeExhausted(ctx, game.ID)
		return true, nil
	}
	return false, nil
}

// completeExhausted finishes a game whose ninety numbers are all out.
func (s *GameScheduler) completeExhausted(ctx context.Context, gameID primitive.ObjectID) {
	ok, err := s.gameRepo.UpdateStatus(ctx, gameID, models.GameStatusLive, models.GameStatusCompleted)
	if err != nil {
		slog.Error("Failed to complete exhausted game, sweep will retry", "gameId", gameID.Hex(), "error", err)
		return
	}
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.paused, gameID)
	s.mu.Unlock()
	s.announceCompleted(ctx, gameID)
}

func (s *GameScheduler) announceCompleted(ctx context.Context, gameID primitive.ObjectID) {
	payload := map[string]interface{}{}
	if game, err := s.gameRepo.FindByID(ctx, gameID); err == nil {
		payload["winners"] = game.Winners
		payload["calledNumbers"] = game.CalledNumbers
	}
	slog.Info("Game completed", "gameId", gameID.Hex())
	s.broadcaster.Publish(gameID.Hex(), ws.EventGameCompleted, payload)
}

func (s *GameScheduler) loadGame(ctx context.Context, gameID primitive.ObjectID) (*models.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("game %s: %w", gameID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return game, nil
}
