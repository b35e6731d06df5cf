// Package memory provides in-memory repository implementations. They back
// the engine's unit tests and the local development mode, and reproduce the
// same compare-and-set semantics as the MongoDB implementations. Missing
// documents are reported with mongo.ErrNoDocuments so callers keep a single
// not-found check across both backends.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// GameRepository implements repositories.GameRepository in memory
type GameRepository struct {
	games map[primitive.ObjectID]*models.Game
	mu    sync.Mutex
}

// NewGameRepository creates a new memory game repository
func NewGameRepository() *GameRepository {
	return &GameRepository{
		games: make(map[primitive.ObjectID]*models.Game),
	}
}

func copyGame(g *models.Game) *models.Game {
	cp := *g
	cp.CalledNumbers = append([]int(nil), g.CalledNumbers...)
	if g.PrizeDistribution != nil {
		cp.PrizeDistribution = make(map[models.Pattern]float64, len(g.PrizeDistribution))
		for k, v := range g.PrizeDistribution {
			cp.PrizeDistribution[k] = v
		}
	}
	if g.Winners != nil {
		cp.Winners = make(map[models.Pattern]models.WinnerRecord, len(g.Winners))
		for k, v := range g.Winners {
			cp.Winners[k] = v
		}
	}
	return &cp
}

func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if game.ID.IsZero() {
		game.ID = primitive.NewObjectID()
	}
	game.CreatedAt = time.Now()
	game.UpdatedAt = time.Now()
	if game.CalledNumbers == nil {
		game.CalledNumbers = []int{}
	}
	r.games[game.ID] = copyGame(game)
	return nil
}

func (r *GameRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return copyGame(g), nil
}

func (r *GameRepository) FindByStatus(ctx context.Context, status models.GameStatus, limit int64) ([]*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	games := make([]*models.Game, 0)
	for _, g := range r.games {
		if g.Status == status {
			games = append(games, copyGame(g))
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ScheduledTime.After(games[j].ScheduledTime) })
	if limit > 0 && int64(len(games)) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (r *GameRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	games := make([]*models.Game, 0, len(ids))
	for _, id := range ids {
		if g, ok := r.games[id]; ok {
			games = append(games, copyGame(g))
		}
	}
	return games, nil
}

func (r *GameRepository) FindDueForPromotion(ctx context.Context, now time.Time) ([]*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	games := make([]*models.Game, 0)
	for _, g := range r.games {
		if g.Status == models.GameStatusUpcoming && !g.Deadline.After(now) {
			games = append(games, copyGame(g))
		}
	}
	return games, nil
}

func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[game.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	game.UpdatedAt = time.Now()
	r.games[game.ID] = copyGame(game)
	return nil
}

func (r *GameRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.games, id)
	return nil
}

func (r *GameRepository) CountByStatus(ctx context.Context, status models.GameStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, g := range r.games {
		if g.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *GameRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.games)), nil
}

func (r *GameRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.GameStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || g.Status != from {
		return false, nil
	}
	now := time.Now()
	g.Status = to
	g.UpdatedAt = now
	switch to {
	case models.GameStatusLive:
		g.StartedAt = now
	case models.GameStatusCompleted, models.GameStatusCancelled:
		g.CompletedAt = now
	}
	return true, nil
}

func (r *GameRepository) AppendCalledNumber(ctx context.Context, id primitive.ObjectID, n int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || g.Status != models.GameStatusLive {
		return false, nil
	}
	for _, c := range g.CalledNumbers {
		if c == n {
			return false, nil
		}
	}
	g.CalledNumbers = append(g.CalledNumbers, n)
	g.UpdatedAt = time.Now()
	return true, nil
}

func (r *GameRepository) SetWinner(ctx context.Context, id primitive.ObjectID, pattern models.Pattern, rec models.WinnerRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || g.Status != models.GameStatusLive {
		return false, nil
	}
	if g.Winners == nil {
		g.Winners = make(map[models.Pattern]models.WinnerRecord)
	}
	if _, taken := g.Winners[pattern]; taken {
		return false, nil
	}
	g.Winners[pattern] = rec
	g.UpdatedAt = time.Now()
	return true, nil
}

func (r *GameRepository) ReserveSpot(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || !g.IsJoinable(now) {
		return false, nil
	}
	g.FilledSpots++
	g.UpdatedAt = time.Now()
	return true, nil
}

func (r *GameRepository) ReleaseSpot(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || g.FilledSpots == 0 {
		return errors.New("no spot to release")
	}
	g.FilledSpots--
	g.UpdatedAt = time.Now()
	return nil
}

func (r *GameRepository) SetCallingSpeed(ctx context.Context, id primitive.ObjectID, speed models.CallingSpeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	g.CallingSpeed = speed
	g.UpdatedAt = time.Now()
	return nil
}
