package memory

import (
	"context"
	"sync"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// LeagueRepository implements repositories.LeagueRepository in memory
type LeagueRepository struct {
	leagues map[primitive.ObjectID]*models.League
	mu      sync.Mutex
}

// NewLeagueRepository creates a new memory league repository
func NewLeagueRepository() *LeagueRepository {
	return &LeagueRepository{
		leagues: make(map[primitive.ObjectID]*models.League),
	}
}

func copyLeague(l *models.League) *models.League {
	cp := *l
	cp.Members = append([]models.LeagueMember(nil), l.Members...)
	return &cp
}

func (r *LeagueRepository) Create(ctx context.Context, league *models.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if league.ID.IsZero() {
		league.ID = primitive.NewObjectID()
	}
	league.CreatedAt = time.Now()
	league.UpdatedAt = time.Now()
	if league.Members == nil {
		league.Members = []models.LeagueMember{}
	}
	r.leagues[league.ID] = copyLeague(league)
	return nil
}

func (r *LeagueRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leagues[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return copyLeague(l), nil
}

func (r *LeagueRepository) FindByCode(ctx context.Context, code string) (*models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.leagues {
		if l.Code == code {
			return copyLeague(l), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *LeagueRepository) FindPublic(ctx context.Context, limit int64) ([]*models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	leagues := make([]*models.League, 0)
	for _, l := range r.leagues {
		if l.Visibility == "public" {
			leagues = append(leagues, copyLeague(l))
		}
	}
	if limit > 0 && int64(len(leagues)) > limit {
		leagues = leagues[:limit]
	}
	return leagues, nil
}

func (r *LeagueRepository) FindByMember(ctx context.Context, userID primitive.ObjectID) ([]*models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	leagues := make([]*models.League, 0)
	for _, l := range r.leagues {
		if l.CreatorID == userID || l.IsMember(userID) {
			leagues = append(leagues, copyLeague(l))
		}
	}
	return leagues, nil
}

func (r *LeagueRepository) AddMember(ctx context.Context, id primitive.ObjectID, member models.LeagueMember) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leagues[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if l.IsMember(member.UserID) {
		return false, nil
	}
	l.Members = append(l.Members, member)
	l.UpdatedAt = time.Now()
	return true, nil
}
